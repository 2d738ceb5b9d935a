package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mita-backend/internal/config"
	apperrors "mita-backend/internal/errors"
	"mita-backend/internal/models"
	"mita-backend/internal/repositories"
	"mita-backend/internal/repositories/repository_mocks"
	"mita-backend/internal/services"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
)

func TestAuthMiddleware(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

type AuthMiddlewareSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	tokenService  services.TokenServiceInterface
	blacklistRepo *repository_mocks.MockBlacklistedTokenRepositoryInterface
	e             *echo.Echo
	user          *models.User
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.tokenService = s.newTokenService(24 * time.Hour)
	s.blacklistRepo = repository_mocks.NewMockBlacklistedTokenRepositoryInterface(s.ctrl)
	s.e = echo.New()
	s.user = &models.User{
		ID:    uuid.New(),
		Email: gofakeit.Email(),
		Role:  models.RoleUser,
	}
}

func (s *AuthMiddlewareSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AuthMiddlewareSuite) newTokenService(accessTTL time.Duration) services.TokenServiceInterface {
	privateKey, publicKey, err := config.GenerateRSAKeyPair()
	s.Require().NoError(err)

	return services.NewTokenService(&config.JWTConfig{
		PrivateKey:           privateKey,
		PublicKey:            publicKey,
		Issuer:               "mita-test",
		AccessTokenDuration:  accessTTL,
		RefreshTokenDuration: 7 * 24 * time.Hour,
	})
}

func (s *AuthMiddlewareSuite) accessToken(ts services.TokenServiceInterface) string {
	token, _, err := ts.GenerateAccessToken(s.user)
	s.Require().NoError(err)
	return token
}

// call runs RequireAuth with the given Authorization header and reports
// whether the protected handler ran
func (s *AuthMiddlewareSuite) call(authHeader string) (*httptest.ResponseRecorder, echo.Context, bool) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := s.e.NewContext(req, rec)

	reached := false
	err := RequireAuth(s.tokenService, s.blacklistRepo)(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})(c)
	s.Require().NoError(err)
	return rec, c, reached
}

func (s *AuthMiddlewareSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var resp apperrors.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func (s *AuthMiddlewareSuite) TestValidToken() {
	s.blacklistRepo.EXPECT().GetByJTI(gomock.Any()).Return(nil, repositories.ErrTokenNotFound).Times(1)

	rec, c, reached := s.call("Bearer " + s.accessToken(s.tokenService))

	s.True(reached)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(s.user.ID, c.Get(ContextUserID))
	s.Equal(s.user.Email, c.Get(ContextEmail))
	s.Equal(models.RoleUser, c.Get(ContextRole))
	s.NotEmpty(c.Get(ContextTokenJTI))
}

func (s *AuthMiddlewareSuite) TestNilBlacklistResultIsNotRevoked() {
	s.blacklistRepo.EXPECT().GetByJTI(gomock.Any()).Return(nil, nil).Times(1)

	_, _, reached := s.call("Bearer " + s.accessToken(s.tokenService))

	s.True(reached)
}

func (s *AuthMiddlewareSuite) TestRevokedToken() {
	token := s.accessToken(s.tokenService)
	jti, err := s.tokenService.GetJTI(token)
	s.Require().NoError(err)

	s.blacklistRepo.EXPECT().
		GetByJTI(jti).
		Return(&models.BlacklistedToken{ID: uuid.New(), JTI: jti, UserID: s.user.ID}, nil).
		Times(1)

	rec, _, reached := s.call("Bearer " + token)

	s.False(reached)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("AUTH_004", s.errorCode(rec))
	s.Contains(rec.Body.String(), "revoked")
}

func (s *AuthMiddlewareSuite) TestBlacklistFailureFailsClosed() {
	s.blacklistRepo.EXPECT().GetByJTI(gomock.Any()).Return(nil, errors.New("connection refused")).Times(1)

	rec, _, reached := s.call("Bearer " + s.accessToken(s.tokenService))

	s.False(reached)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Equal("SYSTEM_003", s.errorCode(rec))
}

func (s *AuthMiddlewareSuite) TestMissingHeader() {
	rec, _, reached := s.call("")

	s.False(reached)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("AUTH_002", s.errorCode(rec))
}

func (s *AuthMiddlewareSuite) TestMalformedHeaders() {
	for name, header := range map[string]string{
		"basic scheme":  "Basic dXNlcjpwYXNz",
		"no token":      "Bearer ",
		"not a jwt":     "Bearer not.a.jwt",
		"random string": "Bearer " + gofakeit.LetterN(40),
	} {
		s.Run(name, func() {
			rec, _, reached := s.call(header)

			s.False(reached)
			s.Equal(http.StatusUnauthorized, rec.Code)
			s.Equal("AUTH_004", s.errorCode(rec))
		})
	}
}

func (s *AuthMiddlewareSuite) TestExpiredToken() {
	s.tokenService = s.newTokenService(-time.Minute)

	rec, _, reached := s.call("Bearer " + s.accessToken(s.tokenService))

	s.False(reached)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("AUTH_003", s.errorCode(rec))
}

func (s *AuthMiddlewareSuite) TestForeignSignature() {
	foreign := s.accessToken(s.newTokenService(time.Hour))

	rec, _, reached := s.call("Bearer " + foreign)

	s.False(reached)
	s.Equal("AUTH_004", s.errorCode(rec))
}

func (s *AuthMiddlewareSuite) TestRefreshTokenRejected() {
	refresh, _, err := s.tokenService.GenerateRefreshToken(s.user.ID)
	s.Require().NoError(err)

	rec, _, reached := s.call("Bearer " + refresh)

	s.False(reached)
	s.Equal("AUTH_004", s.errorCode(rec))
}

func (s *AuthMiddlewareSuite) roleContext(role interface{}) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := s.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if role != nil {
		c.Set(ContextRole, role)
	}
	return c, rec
}

func (s *AuthMiddlewareSuite) TestRequireRole() {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	s.Run("allowed", func() {
		c, rec := s.roleContext(models.RoleAdmin)
		s.NoError(RequireRole(models.RoleAdmin)(ok)(c))
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("any of several", func() {
		for _, role := range []string{models.RoleUser, models.RoleAdmin} {
			c, rec := s.roleContext(role)
			s.NoError(RequireRole(models.RoleUser, models.RoleAdmin)(ok)(c))
			s.Equal(http.StatusOK, rec.Code)
		}
	})

	s.Run("forbidden", func() {
		c, rec := s.roleContext(models.RoleUser)
		s.NoError(RequireRole(models.RoleAdmin)(ok)(c))
		s.Equal(http.StatusForbidden, rec.Code)
		s.Equal("AUTH_005", s.errorCode(rec))
	})

	s.Run("missing role", func() {
		c, rec := s.roleContext(nil)
		s.NoError(RequireRole(models.RoleAdmin)(ok)(c))
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}
