package handlers

import (
	stderrors "errors"
	"net/http"

	"mita-backend/internal/dto"
	"mita-backend/internal/errors"
	"mita-backend/internal/notifications"
	"mita-backend/internal/services"

	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	notificationService services.NotificationServiceInterface
}

func NewNotificationHandler(notificationService services.NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// RegisterPushToken registers a device for push delivery
// POST /notifications/push-token
func (h *NotificationHandler) RegisterPushToken(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.RegisterPushTokenRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	token, err := h.notificationService.RegisterPushToken(userID, req.Token, req.Platform)
	if err != nil {
		if stderrors.Is(err, services.ErrInvalidPushToken) {
			return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails(err.Error()))
		}
		return SendSystemError(c, err)
	}

	return sendData(c, http.StatusCreated, token, "Push token registered successfully")
}

// UnregisterPushToken removes a device registration
// DELETE /notifications/push-token
func (h *NotificationHandler) UnregisterPushToken(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.UnregisterPushTokenRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	if err := h.notificationService.UnregisterPushToken(userID, req.Token); err != nil {
		if stderrors.Is(err, services.ErrPushTokenNotFound) {
			return SendError(c, errors.NotificationTokenNotFound)
		}
		return SendSystemError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Test queues a notification for the current user
// POST /notifications/test
func (h *NotificationHandler) Test(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.TestNotificationRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	channel := req.Channel
	if channel == "" {
		channel = notifications.ChannelPush
	}
	title := req.Title
	if title == "" {
		title = "Test notification"
	}
	body := req.Body
	if body == "" {
		body = "Notifications are working."
	}

	event := notifications.NewEvent(userID, channel, title, body)
	if err := h.notificationService.Enqueue(c.Request().Context(), event); err != nil {
		switch {
		case stderrors.Is(err, notifications.ErrInvalidEvent):
			return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
		case stderrors.Is(err, services.ErrCircuitBreakerOpen):
			return SendError(c, errors.NotificationUnavailable)
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusAccepted, SuccessResponse{
		Data:    map[string]string{"event_id": event.ID.String()},
		Message: "Notification queued",
	})
}

// History lists the user's most recent delivery attempts
// GET /notifications/history?limit=N
func (h *NotificationHandler) History(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	logs, err := h.notificationService.History(userID, getIntParam(c, "limit", services.DefaultHistoryLimit))
	if err != nil {
		return SendSystemError(c, err)
	}

	return sendList(c, logs)
}
