package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/climapro-backend/internal/notification"
	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	alertQueueSize   = 16
	alertSendTimeout = 10 * time.Second
)

// AlertSender delivers a weather alert to one recipient.
type AlertSender interface {
	SendWeatherAlert(ctx context.Context, userID string, data notification.WeatherAlertData, priority notification.Priority) (*notification.Response, error)
}

// AlertNotifier forwards snapshot alerts to the notification API when the
// user has both notifications and severe weather alerts enabled. Each alert
// is sent at most once per location and start time.
type AlertNotifier struct {
	sender      AlertSender
	recipientID string
	sent        *cache.Cache
	queue       chan queuedAlert
	done        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
	log         *zap.SugaredLogger
}

type queuedAlert struct {
	data     notification.WeatherAlertData
	priority notification.Priority
}

var _ types.EventHandler = (*AlertNotifier)(nil)

func NewAlertNotifier(sender AlertSender, recipientID string) *AlertNotifier {
	n := &AlertNotifier{
		sender:      sender,
		recipientID: recipientID,
		sent:        cache.New(24*time.Hour, time.Hour),
		queue:       make(chan queuedAlert, alertQueueSize),
		done:        make(chan struct{}),
		log:         logger.GetLogger().Named("alert_notifier"),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *AlertNotifier) SupportedEvents() []types.EventType {
	return []types.EventType{types.EventTypeWeatherUpdated}
}

// HandleEvent queues unseen alerts and returns without waiting for delivery.
func (n *AlertNotifier) HandleEvent(ctx context.Context, event types.Event) error {
	var payload types.StateChangedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode state payload: %w", err)
	}
	state := payload.State
	if state.Snapshot == nil || len(state.Snapshot.Alerts) == 0 {
		return nil
	}
	if !state.Settings.NotificationsEnabled || !state.Settings.SevereWeatherAlerts {
		return nil
	}

	location := state.Snapshot.Location
	for _, alert := range state.Snapshot.Alerts {
		key := fmt.Sprintf("%s|%s|%d", location.ID, alert.ID, alert.StartTime.Unix())
		if err := n.sent.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
			continue
		}
		data := notification.WeatherAlertData{
			LocationID: location.ID,
			Location:   location.Name,
			AlertType:  string(alert.Type),
			Title:      alert.Title,
			Message:    alert.Description,
			Severity:   string(alert.Severity),
			StartTime:  alert.StartTime.Format(time.RFC3339),
			EndTime:    alert.EndTime.Format(time.RFC3339),
		}
		select {
		case n.queue <- queuedAlert{data: data, priority: alertPriority(alert.Severity)}:
		case <-n.done:
			return nil
		default:
			n.sent.Delete(key)
			n.log.Warnw("Alert queue full, dropping alert", "locationID", location.ID, "alertID", alert.ID)
		}
	}
	return nil
}

func alertPriority(severity types.AlertSeverity) notification.Priority {
	switch severity {
	case types.SeverityExtreme:
		return notification.PriorityCritical
	case types.SeveritySevere:
		return notification.PriorityHigh
	case types.SeverityModerate:
		return notification.PriorityMedium
	default:
		return notification.PriorityLow
	}
}

func (n *AlertNotifier) run() {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			return
		case queued := <-n.queue:
			data := queued.data
			ctx, cancel := context.WithTimeout(context.Background(), alertSendTimeout)
			if _, err := n.sender.SendWeatherAlert(ctx, n.recipientID, data, queued.priority); err != nil {
				n.log.Warnw("Failed to send weather alert", "locationID", data.LocationID, "title", data.Title, "error", err)
			} else {
				n.log.Infow("Weather alert sent", "locationID", data.LocationID, "title", data.Title)
			}
			cancel()
		}
	}
}

// Close stops the delivery loop. Queued alerts that have not been sent yet
// are discarded.
func (n *AlertNotifier) Close() {
	n.closeOnce.Do(func() {
		close(n.done)
	})
	n.wg.Wait()
}
