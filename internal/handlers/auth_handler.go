package handlers

import (
	stderrors "errors"
	"net/http"

	"mita-backend/internal/dto"
	"mita-backend/internal/errors"
	"mita-backend/internal/models"
	"mita-backend/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  services.AuthServiceInterface
	tokenService services.TokenServiceInterface
}

func NewAuthHandler(authService services.AuthServiceInterface, tokenService services.TokenServiceInterface) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
	}
}

// Register creates an account
// POST /auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	ip, agent := clientInfo(c)
	user, err := h.authService.Register(&req, ip, agent)
	if err != nil {
		switch {
		case stderrors.Is(err, services.ErrUserAlreadyExists):
			return SendError(c, errors.AuthEmailAlreadyExists)
		case stderrors.Is(err, services.ErrWeakPassword):
			return SendError(c, errors.ValidationInvalidFormat, errors.WithDetails(err.Error()))
		}
		return SendSystemError(c, err)
	}

	return sendData(c, http.StatusCreated, toProfileResponse(user), "User registered successfully")
}

// Login exchanges credentials for a token pair
// POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	ip, agent := clientInfo(c)
	tokens, err := h.authService.Login(&req, ip, agent)
	if err != nil {
		switch {
		case stderrors.Is(err, services.ErrAccountLocked):
			return SendError(c, errors.AuthAccountLocked)
		case stderrors.Is(err, services.ErrInvalidCredentials):
			return SendError(c, errors.AuthInvalidCredentials)
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, tokens)
}

// RefreshToken rotates a refresh token
// POST /auth/refresh
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req dto.RefreshTokenRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	ip, agent := clientInfo(c)
	tokens, err := h.authService.RefreshTokens(req.RefreshToken, ip, agent)
	if err != nil {
		if stderrors.Is(err, services.ErrInvalidRefreshToken) {
			return SendError(c, errors.AuthInvalidTokenFormat, errors.WithDetails("Invalid or expired refresh token"))
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, tokens)
}

// GoogleLogin signs in with a Google ID token, registering new users
// POST /auth/google
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req dto.GoogleAuthRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	ip, agent := clientInfo(c)
	tokens, err := h.authService.GoogleSignIn(c.Request().Context(), req.IDToken, ip, agent)
	if err != nil {
		switch {
		case stderrors.Is(err, services.ErrGoogleSignInDisabled):
			return SendError(c, errors.AuthGoogleUnavailable)
		case stderrors.Is(err, services.ErrInvalidGoogleToken):
			return SendError(c, errors.AuthInvalidGoogleToken)
		case stderrors.Is(err, services.ErrAccountLocked):
			return SendError(c, errors.AuthAccountLocked)
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, tokens)
}

// Logout blacklists the presented access token
// POST /auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return SendError(c, errors.AuthMissingToken)
	}

	accessToken, err := h.tokenService.ExtractTokenFromHeader(header)
	if err != nil {
		return SendError(c, errors.AuthInvalidTokenFormat)
	}

	// failures are logged by the service; the client always sees success
	ip, agent := clientInfo(c)
	_ = h.authService.Logout(accessToken, ip, agent)

	return sendData(c, http.StatusOK, nil, "Logout successful")
}

func toProfileResponse(user *models.User) dto.UserProfileResponse {
	return dto.UserProfileResponse{
		ID:           user.ID.String(),
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Country:      user.Country,
		Timezone:     user.Timezone,
		Role:         user.Role,
		ReferralCode: models.ReferralCodeFor(user.ID),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}
