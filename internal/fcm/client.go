package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client mirrors popup notifications to one device via FCM. Strictly
// best-effort: delivery is neither tracked nor retried.
type Client struct {
	msgClient   *messaging.Client
	deviceToken string
	logger      *zap.Logger
}

// NewClient initializes the messaging client. With an empty credentialsFile
// the SDK falls back to GOOGLE_APPLICATION_CREDENTIALS or default
// credentials.
func NewClient(ctx context.Context, logger *zap.Logger, credentialsFile, deviceToken string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting messaging client: %w", err)
	}

	return &Client{
		msgClient:   msgClient,
		deviceToken: deviceToken,
		logger:      logger,
	}, nil
}

// Push sends one notification to the configured device.
func (c *Client) Push(ctx context.Context, title, body string, data map[string]string) error {
	if c.deviceToken == "" {
		return nil
	}

	message := &messaging.Message{
		Token: c.deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := c.msgClient.Send(ctx, message); err != nil {
		c.logger.Warn("failed to send push notification", zap.Error(err))
		return err
	}
	return nil
}
