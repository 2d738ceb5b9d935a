package handlers

import (
	stderrors "errors"
	"net/http"

	"mita-backend/internal/dto"
	"mita-backend/internal/errors"
	"mita-backend/internal/services"

	"github.com/labstack/echo/v4"
)

// UserHandler serves the signed-in user's own account
type UserHandler struct {
	userService     services.UserServiceInterface
	passwordService services.PasswordServiceInterface
}

func NewUserHandler(userService services.UserServiceInterface, passwordService services.PasswordServiceInterface) *UserHandler {
	return &UserHandler{
		userService:     userService,
		passwordService: passwordService,
	}
}

// GetProfile returns the current user
// GET /users/me
func (h *UserHandler) GetProfile(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	user, err := h.userService.GetProfile(userID)
	if err != nil {
		if stderrors.Is(err, services.ErrUserNotFound) {
			return SendError(c, errors.AuthUserNotFound)
		}
		return SendSystemError(c, err)
	}

	return sendData(c, http.StatusOK, toProfileResponse(user), "")
}

// UpdateProfile changes email, country or timezone
// PATCH /users/me
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.UpdateProfileRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	user, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		switch {
		case stderrors.Is(err, services.ErrEmptyUpdate):
			return SendError(c, errors.ValidationRequiredField, errors.WithDetails("At least one field must be provided"))
		case stderrors.Is(err, services.ErrInvalidProfile):
			return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails(err.Error()))
		case stderrors.Is(err, services.ErrEmailAlreadyExists):
			return SendError(c, errors.AuthEmailAlreadyExists)
		case stderrors.Is(err, services.ErrUserNotFound):
			return SendError(c, errors.AuthUserNotFound)
		}
		return SendSystemError(c, err)
	}

	return sendData(c, http.StatusOK, toProfileResponse(user), "Profile updated successfully")
}

// ChangePassword replaces the password and signs out every other session
// PUT /users/me/password
func (h *UserHandler) ChangePassword(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.ChangePasswordRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	if err := h.passwordService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case stderrors.Is(err, services.ErrCurrentPasswordWrong):
			return SendError(c, errors.AuthInvalidCredentials, errors.WithDetails("Current password is incorrect"))
		case stderrors.Is(err, services.ErrSamePassword), stderrors.Is(err, services.ErrWeakPassword):
			return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails(err.Error()))
		case stderrors.Is(err, services.ErrUserNotFound):
			return SendError(c, errors.AuthUserNotFound)
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Message: "Password changed successfully",
	})
}
