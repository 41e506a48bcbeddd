package config

import (
	"sync"

	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ChangeHandler receives the re-decoded configuration after the config file
// changes. Handlers only see configurations that passed validation.
type ChangeHandler func(cfg *Config) error

// Watcher reloads the YAML config file on change and notifies subscribers.
type Watcher struct {
	viper    *viper.Viper
	handlers map[string]ChangeHandler
	mu       sync.RWMutex
	watching bool
}

func NewWatcher(v *viper.Viper) *Watcher {
	return &Watcher{
		viper:    v,
		handlers: make(map[string]ChangeHandler),
	}
}

// Subscribe registers handler under id, replacing any previous one.
func (w *Watcher) Subscribe(id string, handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[id] = handler
	logger.GetLogger().Infow("Config watcher: subscribed handler", "handler", id)
}

func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.handlers, id)
}

// Start begins watching the config file. Calling it twice has no effect.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return
	}
	w.watching = true
	w.mu.Unlock()

	w.viper.OnConfigChange(func(e fsnotify.Event) {
		logger.GetLogger().Infow("Config file changed", "file", e.Name, "op", e.Op.String())
		w.reload()
	})
	w.viper.WatchConfig()

	logger.GetLogger().Info("Config watcher: started watching for configuration changes")
}

func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

func (w *Watcher) HandlerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.handlers)
}

// reload decodes the current viper state and fans it out. An invalid file is
// logged and ignored; the running configuration stays in effect.
func (w *Watcher) reload() {
	log := logger.GetLogger()

	cfg, err := decode(w.viper)
	if err != nil {
		log.Errorw("Config watcher: ignoring invalid configuration", "error", err)
		return
	}

	w.mu.RLock()
	handlers := make(map[string]ChangeHandler, len(w.handlers))
	for id, h := range w.handlers {
		handlers[id] = h
	}
	w.mu.RUnlock()

	for id, handler := range handlers {
		if err := handler(cfg); err != nil {
			log.Errorw("Config watcher: handler failed", "handler", id, "error", err)
		}
	}
}
