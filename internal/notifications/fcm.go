package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// fcmClient is the subset of *messaging.Client the sender uses
type fcmClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender delivers push notifications through Firebase Cloud Messaging
type FCMSender struct {
	client fcmClient
}

// NewFCMSender initialises a Firebase app. An empty credentials file falls
// back to application default credentials.
func NewFCMSender(ctx context.Context, projectID, credentialsFile string) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Channel() string {
	return ChannelPush
}

// Send pushes the event to every registered device. Unregistered tokens are
// collected as stale instead of failing the delivery.
func (s *FCMSender) Send(ctx context.Context, to Recipient, event Event) (Result, error) {
	var result Result
	if len(to.PushTokens) == 0 {
		return result, ErrNoRecipient
	}

	var errs []error
	for _, token := range to.PushTokens {
		message := &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: event.Title,
				Body:  event.Body,
			},
			Data: event.Data,
		}

		if _, err := s.client.Send(ctx, message); err != nil {
			if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
				result.StaleTokens = append(result.StaleTokens, token)
				continue
			}
			slog.WarnContext(ctx, "push delivery failed", "user_id", event.UserID, "error", err)
			errs = append(errs, err)
			continue
		}
		result.Delivered++
	}

	if result.Delivered == 0 && len(errs) > 0 {
		return result, fmt.Errorf("push delivery failed: %w", errors.Join(errs...))
	}
	if result.Delivered == 0 {
		return result, ErrNoRecipient
	}
	return result, nil
}
