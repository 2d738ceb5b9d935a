package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mita-backend/internal/models"
	"mita-backend/internal/notifications"
	"mita-backend/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrInvalidPushToken  = errors.New("invalid push token")
	ErrPushTokenNotFound = errors.New("push token not found")
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Delivery outcomes reported on the notification counter
const (
	deliverySent     = "sent"
	deliveryFailed   = "failed"
	deliverySkipped  = "skipped"
	deliveryRejected = "rejected"
)

type NotificationService struct {
	pushTokenRepo repositories.PushTokenRepositoryInterface
	logRepo       repositories.NotificationLogRepositoryInterface
	userRepo      repositories.UserRepositoryInterface
	senders       map[string]notifications.Sender
	breakers      map[string]CircuitBreakerInterface
	publisher     Publisher
	metrics       MetricsRecorderInterface
}

// NewNotificationService builds the dispatcher. A nil publisher makes
// Enqueue deliver in-process instead of going through the queue. Each
// sender gets its own circuit breaker built from breakerConfig.
func NewNotificationService(
	pushTokenRepo repositories.PushTokenRepositoryInterface,
	logRepo repositories.NotificationLogRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	senders []notifications.Sender,
	publisher Publisher,
	breakerConfig CircuitBreakerConfig,
	metrics MetricsRecorderInterface,
) NotificationServiceInterface {
	if metrics == nil {
		metrics = noopMetrics{}
	}

	s := &NotificationService{
		pushTokenRepo: pushTokenRepo,
		logRepo:       logRepo,
		userRepo:      userRepo,
		senders:       make(map[string]notifications.Sender, len(senders)),
		breakers:      make(map[string]CircuitBreakerInterface, len(senders)),
		publisher:     publisher,
		metrics:       metrics,
	}

	for _, sender := range senders {
		channel := sender.Channel()
		cfg := breakerConfig
		cfg.Name = "notifications_" + channel
		s.senders[channel] = sender
		s.breakers[channel] = NewCircuitBreaker(cfg, slog.Default())
	}

	return s
}

func (s *NotificationService) RegisterPushToken(userID uuid.UUID, token, platform string) (*models.PushToken, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidPushToken)
	}
	switch platform {
	case models.PlatformIOS, models.PlatformAndroid, models.PlatformWeb:
	default:
		return nil, fmt.Errorf("%w: unsupported platform %q", ErrInvalidPushToken, platform)
	}

	pushToken := &models.PushToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
	}
	if err := s.pushTokenRepo.Upsert(pushToken); err != nil {
		return nil, fmt.Errorf("failed to register push token: %w", err)
	}

	slog.Info("push token registered",
		"user_id", userID,
		"platform", platform)

	return pushToken, nil
}

func (s *NotificationService) UnregisterPushToken(userID uuid.UUID, token string) error {
	if err := s.pushTokenRepo.Delete(userID, token); err != nil {
		if errors.Is(err, repositories.ErrPushTokenNotFound) {
			return ErrPushTokenNotFound
		}
		return fmt.Errorf("failed to unregister push token: %w", err)
	}
	return nil
}

// Enqueue validates the event and hands it to the queue
func (s *NotificationService) Enqueue(ctx context.Context, event notifications.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	body, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	if s.publisher == nil {
		return s.Deliver(ctx, body)
	}

	if err := s.publisher.Publish(ctx, body); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Deliver is the queue handler. Malformed events and events that can never
// be delivered return nil so the broker drops them; transient send failures
// return an error so the message is retried.
func (s *NotificationService) Deliver(ctx context.Context, body []byte) error {
	event, err := notifications.ParseEvent(body)
	if err != nil {
		slog.WarnContext(ctx, "dropping malformed notification", "error", err)
		return nil
	}

	sender, ok := s.senders[event.Channel]
	if !ok {
		s.count(event.Channel, deliverySkipped)
		s.writeLog(ctx, event, fmt.Errorf("no sender configured for channel %s", event.Channel), nil)
		return nil
	}

	breaker := s.breakers[event.Channel]
	if !breaker.Allow() {
		s.count(event.Channel, deliveryRejected)
		return fmt.Errorf("%w: %s", ErrCircuitBreakerOpen, event.Channel)
	}

	recipient, err := s.recipient(event)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.count(event.Channel, deliverySkipped)
			slog.WarnContext(ctx, "dropping notification for unknown user", "user_id", event.UserID)
			return nil
		}
		return err
	}

	started := time.Now()
	result, sendErr := sender.Send(ctx, recipient, event)
	s.metrics.RecordProcessingTime(MetricNotificationDuration, time.Since(started))

	s.pruneStaleTokens(ctx, result.StaleTokens)

	switch {
	case sendErr == nil:
		breaker.Success()
		s.count(event.Channel, deliverySent)
	case errors.Is(sendErr, notifications.ErrNoRecipient):
		s.count(event.Channel, deliverySkipped)
	default:
		breaker.Failure()
		s.count(event.Channel, deliveryFailed)
	}
	s.metrics.RecordGauge(MetricCircuitBreakerState, breakerGauge(breaker.State()), map[string]string{
		"service": "notifications_" + event.Channel,
	})

	s.writeLog(ctx, event, sendErr, &result)

	if sendErr != nil && !errors.Is(sendErr, notifications.ErrNoRecipient) {
		return fmt.Errorf("failed to deliver notification: %w", sendErr)
	}
	return nil
}

// History returns the user's most recent delivery attempts
func (s *NotificationService) History(userID uuid.UUID, limit int) ([]models.NotificationLog, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	logs, err := s.logRepo.ListByUserID(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification history: %w", err)
	}
	return logs, nil
}

func (s *NotificationService) recipient(event notifications.Event) (notifications.Recipient, error) {
	var recipient notifications.Recipient

	switch event.Channel {
	case notifications.ChannelEmail:
		user, err := s.userRepo.GetByID(event.UserID)
		if err != nil {
			return recipient, err
		}
		recipient.Email = user.Email
	case notifications.ChannelPush:
		tokens, err := s.pushTokenRepo.ListByUserID(event.UserID)
		if err != nil {
			return recipient, fmt.Errorf("failed to load push tokens: %w", err)
		}
		for _, t := range tokens {
			recipient.PushTokens = append(recipient.PushTokens, t.Token)
		}
	}

	return recipient, nil
}

func (s *NotificationService) pruneStaleTokens(ctx context.Context, tokens []string) {
	for _, token := range tokens {
		if err := s.pushTokenRepo.DeleteByToken(token); err != nil {
			slog.WarnContext(ctx, "failed to remove stale push token", "error", err)
		}
	}
}

func (s *NotificationService) writeLog(ctx context.Context, event notifications.Event, sendErr error, result *notifications.Result) {
	entry := &models.NotificationLog{
		UserID:  event.UserID,
		Channel: event.Channel,
		Title:   event.Title,
		Message: event.Body,
		Success: sendErr == nil,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	entry.SetMetadata("event_id", event.ID.String())
	if result != nil {
		entry.SetMetadata("delivered", result.Delivered)
		if len(result.StaleTokens) > 0 {
			entry.SetMetadata("stale_tokens", len(result.StaleTokens))
		}
	}

	if err := s.logRepo.Create(entry); err != nil {
		slog.ErrorContext(ctx, "failed to write notification log",
			"user_id", event.UserID,
			"channel", event.Channel,
			"error", err)
	}
}

func (s *NotificationService) count(channel, status string) {
	s.metrics.IncrementCounter(MetricNotificationSent, map[string]string{
		"channel": channel,
		"status":  status,
	})
}
