package middleware

import (
	stderrors "errors"
	"log/slog"
	"slices"

	"mita-backend/internal/errors"
	"mita-backend/internal/handlers"
	"mita-backend/internal/models"
	"mita-backend/internal/repositories"
	"mita-backend/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context keys set by RequireAuth
const (
	ContextUserID   = "user_id"
	ContextEmail    = "user_email"
	ContextRole     = "user_role"
	ContextTokenJTI = "token_jti"
)

// rejection is an authentication failure mapped to an API error
type rejection struct {
	code   errors.ErrorCode
	detail string
}

func reject(code errors.ErrorCode, detail string) *rejection {
	return &rejection{code: code, detail: detail}
}

func (r *rejection) send(c echo.Context) error {
	if r.detail == "" {
		return handlers.SendError(c, r.code)
	}
	return handlers.SendError(c, r.code, errors.WithDetails(r.detail))
}

// RequireAuth validates the bearer access token and rejects tokens revoked
// by logout. A blacklist lookup failure fails closed.
func RequireAuth(tokenService services.TokenServiceInterface, blacklistedTokenRepo repositories.BlacklistedTokenRepositoryInterface) echo.MiddlewareFunc {
	verify := func(c echo.Context) (*models.CustomClaims, uuid.UUID, *rejection) {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return nil, uuid.Nil, reject(errors.AuthMissingToken, "")
		}
		raw, err := tokenService.ExtractTokenFromHeader(header)
		if err != nil {
			return nil, uuid.Nil, reject(errors.AuthInvalidTokenFormat, "")
		}

		claims, err := tokenService.ValidateAccessToken(raw)
		switch {
		case stderrors.Is(err, services.ErrExpiredToken):
			return nil, uuid.Nil, reject(errors.AuthExpiredToken, "")
		case err != nil:
			return nil, uuid.Nil, reject(errors.AuthInvalidTokenFormat, "")
		}

		revoked, err := blacklistedTokenRepo.GetByJTI(claims.ID)
		switch {
		case err != nil && !stderrors.Is(err, repositories.ErrTokenNotFound):
			slog.ErrorContext(c.Request().Context(), "token blacklist lookup failed",
				"trace_id", GetTraceID(c),
				"error", err)
			return nil, uuid.Nil, reject(errors.SystemServiceUnavailable, "")
		case err == nil && revoked != nil:
			return nil, uuid.Nil, reject(errors.AuthInvalidTokenFormat, "Token has been revoked")
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return nil, uuid.Nil, reject(errors.AuthInvalidTokenFormat, "Invalid user ID in token")
		}
		return claims, userID, nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, userID, rej := verify(c)
			if rej != nil {
				return rej.send(c)
			}

			c.Set(ContextUserID, userID)
			c.Set(ContextEmail, claims.Email)
			c.Set(ContextRole, claims.Role)
			c.Set(ContextTokenJTI, claims.ID)
			return next(c)
		}
	}
}

// RequireRole allows the request through when the authenticated role is
// one of roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextRole).(string)
			if !ok {
				return handlers.SendError(c, errors.AuthInvalidTokenFormat, errors.WithDetails("User role not found in token"))
			}

			if !slices.Contains(roles, role) {
				return handlers.SendError(c, errors.AuthInsufficientPermission)
			}
			return next(c)
		}
	}
}
