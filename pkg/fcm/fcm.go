package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
}

// NewClient creates a new FCM client using the provided credentials file
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	log.Println("[FCM] Client initialized successfully")
	return &Client{
		messagingClient: messagingClient,
	}, nil
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title string
	Body  string
	// Data is delivered to the app alongside the visible notification
	Data map[string]string
	// Link is opened when a web notification is clicked
	Link string
}

// SendToDevices sends a push notification to multiple device tokens.
// Returns the tokens FCM rejected so callers can forget them.
func (c *Client) SendToDevices(ctx context.Context, tokens []string, notification NotificationData) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	message := BuildMulticast(tokens, notification)
	response, err := c.messagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	log.Printf("[FCM] Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)

	var failedTokens []string
	for i, resp := range response.Responses {
		if resp.Success {
			continue
		}
		// Only unregistered or malformed tokens are dropped; transient errors keep the token.
		if messaging.IsUnregistered(resp.Error) || messaging.IsInvalidArgument(resp.Error) {
			failedTokens = append(failedTokens, tokens[i])
		}
		log.WithError(resp.Error).Warnf("[FCM] Failed to send to token %s", shortToken(tokens[i]))
	}

	return failedTokens, nil
}

// BuildMulticast assembles the multicast message for tokens.
func BuildMulticast(tokens []string, notification NotificationData) *messaging.MulticastMessage {
	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: notification.Data,
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: notification.Title,
				Body:  notification.Body,
				Icon:  "/icon-192.svg",
			},
		},
	}
	if notification.Link != "" {
		message.Webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: notification.Link}
	}
	return message
}

func shortToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
