package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client := NewClient("https://api.example.com", "test-key")

	assert.Equal(t, "https://api.example.com", client.apiURL)
	assert.Equal(t, "test-key", client.apiKey)
	assert.Equal(t, 10*time.Second, client.httpClient.Timeout)

	custom := &http.Client{Timeout: 5 * time.Second}
	client = NewClient("https://api.example.com", "test-key", WithHTTPClient(custom))
	assert.Same(t, custom, client.httpClient)
}

func TestValidateRequest(t *testing.T) {
	client := NewClient("https://api.example.com", "test-key")

	tests := []struct {
		name    string
		request *Request
		wantErr string
	}{
		{
			name:    "valid request",
			request: &Request{UserID: "device-1", EventType: EventTypeWeatherAlert, Priority: PriorityHigh},
		},
		{
			name:    "missing user ID",
			request: &Request{EventType: EventTypeWeatherAlert},
			wantErr: "userId is required",
		},
		{
			name:    "missing event type",
			request: &Request{UserID: "device-1"},
			wantErr: "eventType is required",
		},
		{
			name:    "invalid event type",
			request: &Request{UserID: "device-1", EventType: "DAILY_DIGEST"},
			wantErr: "invalid eventType: DAILY_DIGEST",
		},
		{
			name:    "invalid priority",
			request: &Request{UserID: "device-1", EventType: EventTypeSystemAlert, Priority: "URGENT"},
			wantErr: "invalid priority: URGENT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.validateRequest(tt.request)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, tt.request.Data)
		})
	}
}

func TestSendWeatherAlert(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/notify", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(&Response{NotificationID: "notif-1", Status: "success", ChannelsUsed: []string{"PUSH"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	resp, err := client.SendWeatherAlert(context.Background(), "device-1", WeatherAlertData{
		LocationID: "dubai",
		Location:   "Dubai",
		AlertType:  "advisory",
		Title:      "Heat Advisory",
		Message:    "Stay hydrated.",
		Severity:   "moderate",
	}, PriorityMedium)

	require.NoError(t, err)
	assert.Equal(t, "notif-1", resp.NotificationID)
	assert.Equal(t, "device-1", got.UserID)
	assert.Equal(t, EventTypeWeatherAlert, got.EventType)
	assert.Equal(t, PriorityMedium, got.Priority)
	assert.Equal(t, "Heat Advisory", got.Data["title"])
	assert.Equal(t, "dubai", got.Data["locationId"])
}

func TestSend_FullURLIsUsedAsIs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notify", r.URL.Path)
		_ = json.NewEncoder(w).Encode(&Response{Status: "success"})
	}))
	defer server.Close()

	client := NewClient(server.URL+"/notify", "test-key")
	_, err := client.Send(context.Background(), &Request{UserID: "device-1", EventType: EventTypeSystemAlert})
	assert.NoError(t, err)
}

func TestSend_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(&Response{Error: "slow down"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	resp, err := client.Send(context.Background(), &Request{UserID: "device-1", EventType: EventTypeWeatherAlert})

	require.Error(t, err)
	assert.NotNil(t, resp)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "slow down")
}

func TestSend_ValidationErrorSkipsRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	resp, err := client.Send(context.Background(), &Request{EventType: EventTypeWeatherAlert})

	assert.ErrorContains(t, err, "invalid request")
	assert.Nil(t, resp)
	assert.False(t, called)
}

func TestSend_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, "test-key")
	_, err := client.Send(ctx, &Request{UserID: "device-1", EventType: EventTypeWeatherAlert})
	assert.ErrorContains(t, err, "failed to send request")
}
