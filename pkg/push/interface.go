package push

import "context"

type PushProvider interface {
	SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error)
}

const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

type NotificationRequest struct {
	Token       string            `json:"token"`
	Platform    string            `json:"platform,omitempty"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Priority    string            `json:"priority,omitempty"`
	CollapseKey string            `json:"collapse_key,omitempty"`
	ChannelID   string            `json:"channel_id,omitempty"`
}

type NotificationResponse struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Token     string `json:"token,omitempty"`
}
