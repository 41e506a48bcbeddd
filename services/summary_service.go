package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NomadCrew/climapro-backend/errors"
	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// TextGenerator turns a prompt into text.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeminiTextGenerator generates text with the Gemini API.
type GeminiTextGenerator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

var _ TextGenerator = (*GeminiTextGenerator)(nil)

func NewGeminiTextGenerator(ctx context.Context, apiKey, model string) (*GeminiTextGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiTextGenerator{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.7)},
	}, nil
}

func (g *GeminiTextGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", g.model)
	}
	return text, nil
}

// Summary is a generated weather summary.
type Summary struct {
	LocationID  string    `json:"locationId"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generatedAt"`
	Cached      bool      `json:"cached"`
}

type SummaryOptions struct {
	RequestsPerMinute int
	Timeout           time.Duration
	CacheTTL          time.Duration
}

// SummaryService generates one summary per snapshot and caches it, so the
// same snapshot never costs two model calls.
type SummaryService struct {
	generator TextGenerator
	limiter   *rate.Limiter
	cache     *cache.Cache
	timeout   time.Duration
	clock     func() time.Time
	log       *zap.SugaredLogger
	metrics   *metrics
}

func NewSummaryService(generator TextGenerator, opts SummaryOptions) *SummaryService {
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 6
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SummaryService{
		generator: generator,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		cache:     cache.New(ttl, 2*ttl),
		timeout:   opts.Timeout,
		clock:     time.Now,
		log:       logger.GetLogger().Named("summary"),
		metrics:   newMetrics(),
	}
}

func summaryCacheKey(snapshot types.WeatherSnapshot, unit types.TemperatureUnit) string {
	return fmt.Sprintf("%s|%d|%s", snapshot.Location.ID, snapshot.LastUpdated.UnixNano(), unit)
}

// Summarize returns the summary for snapshot in the given unit.
func (s *SummaryService) Summarize(ctx context.Context, snapshot types.WeatherSnapshot, unit types.TemperatureUnit) (Summary, error) {
	key := summaryCacheKey(snapshot, unit)
	if cached, ok := s.cache.Get(key); ok {
		summary := cached.(Summary)
		summary.Cached = true
		s.metrics.summaryRequests.WithLabelValues("cached").Inc()
		return summary, nil
	}

	if !s.limiter.Allow() {
		s.metrics.summaryRequests.WithLabelValues("rate_limited").Inc()
		return Summary{}, errors.RateLimited("Too many summary requests, try again shortly")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.generator.GenerateText(ctx, BuildSummaryPrompt(snapshot, unit))
	if err != nil {
		s.metrics.summaryRequests.WithLabelValues("failed").Inc()
		return Summary{}, errors.GenerationFailed("summary", err)
	}

	summary := Summary{
		LocationID:  snapshot.Location.ID,
		Text:        text,
		GeneratedAt: s.clock().UTC(),
	}
	s.cache.SetDefault(key, summary)
	s.metrics.summaryRequests.WithLabelValues("generated").Inc()
	s.log.Infow("Generated weather summary", "locationID", snapshot.Location.ID)
	return summary, nil
}

// RainExpected reports whether any of the next 12 hourly records is wet.
func RainExpected(hourly []types.HourlyForecast) bool {
	n := len(hourly)
	if n > 12 {
		n = 12
	}
	for _, h := range hourly[:n] {
		if h.Condition.IsWet() {
			return true
		}
	}
	return false
}

// BuildSummaryPrompt renders the model prompt for snapshot with temperatures
// in unit.
func BuildSummaryPrompt(snapshot types.WeatherSnapshot, unit types.TemperatureUnit) string {
	c := snapshot.Current
	temp := func(v float64) string {
		return fmt.Sprintf("%d", int(roundHalfUp(ConvertTemperature(v, unit))))
	}

	rainLine := ""
	if RainExpected(snapshot.Hourly) {
		rainLine = "- Rain expected in the next 12 hours"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a friendly weather assistant. Generate a brief, conversational weather summary (2-3 sentences max) for %s, %s.\n\n",
		snapshot.Location.Name, snapshot.Location.Country)
	b.WriteString("Current conditions:\n")
	fmt.Fprintf(&b, "- Temperature: %s°%s (feels like %s°)\n", temp(c.Temperature), temperatureSymbol(unit), temp(c.FeelsLike))
	fmt.Fprintf(&b, "- Condition: %s\n", c.Description)
	fmt.Fprintf(&b, "- Humidity: %d%%\n", c.Humidity)
	fmt.Fprintf(&b, "- UV Index: %d\n", c.UVIndex)
	fmt.Fprintf(&b, "- Wind: %d km/h %s\n", c.WindSpeed, c.WindDirection)
	fmt.Fprintf(&b, "- High/Low today: %s°/%s°\n", temp(c.High), temp(c.Low))
	b.WriteString(rainLine + "\n\n")
	b.WriteString("Be friendly and give practical advice (like whether to bring an umbrella, wear sunscreen, or enjoy outdoor activities). ")
	b.WriteString("Keep it conversational and helpful. Don't use bullet points or lists - write naturally.")
	return b.String()
}
