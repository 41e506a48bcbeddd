package notification

// EventType represents the type of notification event
type EventType string

const (
	EventTypeWeatherAlert EventType = "WEATHER_ALERT"
	EventTypeSystemAlert  EventType = "SYSTEM_ALERT"
)

// Priority represents the notification priority level
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Request represents a notification request to the facade API
type Request struct {
	UserID         string                 `json:"userId"`
	EventType      EventType              `json:"eventType"`
	Priority       Priority               `json:"priority,omitempty"`
	NotificationID string                 `json:"notificationId,omitempty"`
	Data           map[string]interface{} `json:"data"`
}

// Response represents the response from the notification facade API
type Response struct {
	NotificationID string   `json:"notificationId"`
	MessageID      string   `json:"messageId"`
	Status         string   `json:"status"`
	ChannelsUsed   []string `json:"channelsUsed"`
	Error          string   `json:"error,omitempty"`
}

// WeatherAlertData represents data for weather alert notifications
type WeatherAlertData struct {
	LocationID string `json:"locationId"`
	Location   string `json:"location"`
	AlertType  string `json:"alertType"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Severity   string `json:"severity,omitempty"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
}
