package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"mita-backend/internal/models"
	"mita-backend/internal/notifications"
	"mita-backend/internal/repositories"
	"mita-backend/internal/repositories/repository_mocks"
	"mita-backend/internal/services/service_mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type fakeSender struct {
	channel string
	result  notifications.Result
	err     error
	sent    []notifications.Recipient
}

func (f *fakeSender) Channel() string {
	return f.channel
}

func (f *fakeSender) Send(_ context.Context, to notifications.Recipient, _ notifications.Event) (notifications.Result, error) {
	f.sent = append(f.sent, to)
	return f.result, f.err
}

type NotificationServiceTestSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	pushTokenRepo *repository_mocks.MockPushTokenRepositoryInterface
	logRepo       *repository_mocks.MockNotificationLogRepositoryInterface
	userRepo      *repository_mocks.MockUserRepositoryInterface
	publisher     *service_mocks.MockPublisher
	push          *fakeSender
	email         *fakeSender
	userID        uuid.UUID
	ctx           context.Context
}

func (s *NotificationServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.pushTokenRepo = repository_mocks.NewMockPushTokenRepositoryInterface(s.ctrl)
	s.logRepo = repository_mocks.NewMockNotificationLogRepositoryInterface(s.ctrl)
	s.userRepo = repository_mocks.NewMockUserRepositoryInterface(s.ctrl)
	s.publisher = service_mocks.NewMockPublisher(s.ctrl)
	s.push = &fakeSender{channel: notifications.ChannelPush, result: notifications.Result{Delivered: 1}}
	s.email = &fakeSender{channel: notifications.ChannelEmail, result: notifications.Result{Delivered: 1}}
	s.userID = uuid.New()
	s.ctx = context.Background()
}

func (s *NotificationServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceTestSuite))
}

func (s *NotificationServiceTestSuite) newService(publisher Publisher) *NotificationService {
	cfg := CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute, HalfOpenSuccesses: 1}
	return NewNotificationService(s.pushTokenRepo, s.logRepo, s.userRepo,
		[]notifications.Sender{s.push, s.email}, publisher, cfg, nil).(*NotificationService)
}

func (s *NotificationServiceTestSuite) encode(event notifications.Event) []byte {
	body, err := event.Marshal()
	s.Require().NoError(err)
	return body
}

func (s *NotificationServiceTestSuite) expectTokens(tokens ...string) {
	rows := make([]models.PushToken, len(tokens))
	for i, t := range tokens {
		rows[i] = models.PushToken{UserID: s.userID, Token: t, Platform: models.PlatformAndroid}
	}
	s.pushTokenRepo.EXPECT().ListByUserID(s.userID).Return(rows, nil).Times(1)
}

func (s *NotificationServiceTestSuite) TestRegisterPushToken() {
	service := s.newService(nil)
	s.pushTokenRepo.EXPECT().Upsert(gomock.Any()).DoAndReturn(func(t *models.PushToken) error {
		s.Equal(s.userID, t.UserID)
		s.Equal("device-token", t.Token)
		return nil
	}).Times(1)

	token, err := service.RegisterPushToken(s.userID, "device-token", models.PlatformIOS)

	s.Require().NoError(err)
	s.Equal(models.PlatformIOS, token.Platform)
}

func (s *NotificationServiceTestSuite) TestRegisterPushToken_InvalidPlatform() {
	service := s.newService(nil)

	_, err := service.RegisterPushToken(s.userID, "device-token", "symbian")

	s.ErrorIs(err, ErrInvalidPushToken)
}

func (s *NotificationServiceTestSuite) TestUnregisterPushToken_NotFound() {
	service := s.newService(nil)
	s.pushTokenRepo.EXPECT().Delete(s.userID, "gone").Return(repositories.ErrPushTokenNotFound).Times(1)

	err := service.UnregisterPushToken(s.userID, "gone")

	s.ErrorIs(err, ErrPushTokenNotFound)
}

func (s *NotificationServiceTestSuite) TestEnqueue_PublishesToQueue() {
	service := s.newService(s.publisher)
	event := notifications.NewEvent(s.userID, notifications.ChannelPush, "Budget", "You are on track")

	s.publisher.EXPECT().Publish(s.ctx, gomock.Any()).DoAndReturn(func(_ context.Context, body []byte) error {
		parsed, err := notifications.ParseEvent(body)
		s.Require().NoError(err)
		s.Equal(event.ID, parsed.ID)
		return nil
	}).Times(1)

	s.NoError(service.Enqueue(s.ctx, event))
	s.Empty(s.push.sent)
}

func (s *NotificationServiceTestSuite) TestEnqueue_InvalidEvent() {
	service := s.newService(s.publisher)

	err := service.Enqueue(s.ctx, notifications.Event{Channel: notifications.ChannelPush})

	s.ErrorIs(err, notifications.ErrInvalidEvent)
}

func (s *NotificationServiceTestSuite) TestEnqueue_PublishFailure() {
	service := s.newService(s.publisher)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("channel closed")).Times(1)

	err := service.Enqueue(s.ctx, notifications.NewEvent(s.userID, notifications.ChannelEmail, "t", "b"))

	s.Error(err)
	s.Contains(err.Error(), "failed to publish notification")
}

func (s *NotificationServiceTestSuite) TestEnqueue_WithoutPublisherDeliversInline() {
	service := s.newService(nil)
	s.expectTokens("tok-1")
	s.logRepo.EXPECT().Create(gomock.Any()).Return(nil).Times(1)

	err := service.Enqueue(s.ctx, notifications.NewEvent(s.userID, notifications.ChannelPush, "t", "b"))

	s.NoError(err)
	s.Require().Len(s.push.sent, 1)
	s.Equal([]string{"tok-1"}, s.push.sent[0].PushTokens)
}

func (s *NotificationServiceTestSuite) TestDeliver_EmailSuccessWritesLog() {
	service := s.newService(nil)
	event := notifications.NewEvent(s.userID, notifications.ChannelEmail, "Monthly report", "Here is your summary")

	s.userRepo.EXPECT().GetByID(s.userID).Return(&models.User{ID: s.userID, Email: "me@example.com"}, nil).Times(1)
	s.logRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(entry *models.NotificationLog) error {
		s.True(entry.Success)
		s.Equal(notifications.ChannelEmail, entry.Channel)
		s.Equal("Here is your summary", entry.Message)
		s.Equal(event.ID.String(), entry.Metadata["event_id"])
		return nil
	}).Times(1)

	s.NoError(service.Deliver(s.ctx, s.encode(event)))
	s.Equal("me@example.com", s.email.sent[0].Email)
}

func (s *NotificationServiceTestSuite) TestDeliver_MalformedIsDropped() {
	service := s.newService(nil)

	s.NoError(service.Deliver(s.ctx, []byte("{not json")))
}

func (s *NotificationServiceTestSuite) TestDeliver_UnknownUserIsDropped() {
	service := s.newService(nil)
	s.userRepo.EXPECT().GetByID(s.userID).Return(nil, repositories.ErrUserNotFound).Times(1)

	err := service.Deliver(s.ctx, s.encode(notifications.NewEvent(s.userID, notifications.ChannelEmail, "t", "b")))

	s.NoError(err)
	s.Empty(s.email.sent)
}

func (s *NotificationServiceTestSuite) TestDeliver_NoRecipientLogsFailure() {
	service := s.newService(nil)
	s.push.result = notifications.Result{}
	s.push.err = notifications.ErrNoRecipient
	s.expectTokens()
	s.logRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(entry *models.NotificationLog) error {
		s.False(entry.Success)
		s.NotEmpty(entry.Error)
		return nil
	}).Times(1)

	err := service.Deliver(s.ctx, s.encode(notifications.NewEvent(s.userID, notifications.ChannelPush, "t", "b")))

	s.NoError(err)
	s.Equal(StateClosed, service.breakers[notifications.ChannelPush].State())
}

func (s *NotificationServiceTestSuite) TestDeliver_PrunesStaleTokens() {
	service := s.newService(nil)
	s.push.result = notifications.Result{Delivered: 1, StaleTokens: []string{"tok-old"}}
	s.expectTokens("tok-new", "tok-old")
	s.pushTokenRepo.EXPECT().DeleteByToken("tok-old").Return(nil).Times(1)
	s.logRepo.EXPECT().Create(gomock.Any()).Return(nil).Times(1)

	s.NoError(service.Deliver(s.ctx, s.encode(notifications.NewEvent(s.userID, notifications.ChannelPush, "t", "b"))))
}

func (s *NotificationServiceTestSuite) TestDeliver_FailuresOpenBreaker() {
	service := s.newService(nil)
	s.email.err = errors.New("smtp: 421 service not available")
	s.userRepo.EXPECT().GetByID(s.userID).Return(&models.User{ID: s.userID, Email: "me@example.com"}, nil).Times(2)
	s.logRepo.EXPECT().Create(gomock.Any()).Return(nil).Times(2)
	body := s.encode(notifications.NewEvent(s.userID, notifications.ChannelEmail, "t", "b"))

	s.Error(service.Deliver(s.ctx, body))
	s.Error(service.Deliver(s.ctx, body))
	s.Equal(StateOpen, service.breakers[notifications.ChannelEmail].State())

	err := service.Deliver(s.ctx, body)

	s.ErrorIs(err, ErrCircuitBreakerOpen)
	s.Len(s.email.sent, 2)
}

func (s *NotificationServiceTestSuite) TestDeliver_OpenBreakerMock() {
	service := s.newService(nil)
	breaker := service_mocks.NewMockCircuitBreakerInterface(s.ctrl)
	service.breakers[notifications.ChannelPush] = breaker
	breaker.EXPECT().Allow().Return(false).Times(1)

	err := service.Deliver(s.ctx, s.encode(notifications.NewEvent(s.userID, notifications.ChannelPush, "t", "b")))

	s.ErrorIs(err, ErrCircuitBreakerOpen)
}

func (s *NotificationServiceTestSuite) TestDeliver_MissingSenderLogsFailure() {
	service := NewNotificationService(s.pushTokenRepo, s.logRepo, s.userRepo, nil, nil, DefaultCircuitBreakerConfig(), nil)
	s.logRepo.EXPECT().Create(gomock.Any()).DoAndReturn(func(entry *models.NotificationLog) error {
		s.False(entry.Success)
		s.Contains(entry.Error, "no sender configured")
		return nil
	}).Times(1)

	err := service.Deliver(s.ctx, s.encode(notifications.NewEvent(s.userID, notifications.ChannelPush, "t", "b")))

	s.NoError(err)
}

func (s *NotificationServiceTestSuite) TestHistory_ClampsLimit() {
	service := s.newService(nil)
	s.logRepo.EXPECT().ListByUserID(s.userID, DefaultHistoryLimit).Return(nil, nil).Times(1)
	s.logRepo.EXPECT().ListByUserID(s.userID, MaxHistoryLimit).Return([]models.NotificationLog{{UserID: s.userID}}, nil).Times(1)

	_, err := service.History(s.userID, 0)
	s.NoError(err)

	logs, err := service.History(s.userID, 5000)
	s.NoError(err)
	s.Len(logs, 1)
}
