package services

import (
	"strings"
	"testing"
	"time"

	"mita-backend/internal/config"
	"mita-backend/internal/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type TokenServiceTestSuite struct {
	suite.Suite
	cfg     config.JWTConfig
	service *TokenService
	clock   time.Time
	user    *models.User
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceTestSuite))
}

func (s *TokenServiceTestSuite) SetupTest() {
	s.cfg = s.newConfig("mita-test")
	s.clock = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.service = s.newService(s.cfg)
	s.user = &models.User{ID: uuid.New(), Email: gofakeit.Email(), Role: models.RoleUser}
}

func (s *TokenServiceTestSuite) newConfig(issuer string) config.JWTConfig {
	privateKey, publicKey, err := config.GenerateRSAKeyPair()
	s.Require().NoError(err)
	return config.JWTConfig{
		PrivateKey:           privateKey,
		PublicKey:            publicKey,
		Issuer:               issuer,
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
	}
}

func (s *TokenServiceTestSuite) newService(cfg config.JWTConfig) *TokenService {
	ts := NewTokenService(&cfg).(*TokenService)
	ts.now = func() time.Time { return s.clock }
	return ts
}

func (s *TokenServiceTestSuite) TestAccessTokenRoundTrip() {
	token, expiresAt, err := s.service.GenerateAccessToken(s.user)
	s.Require().NoError(err)
	s.Equal(s.clock.Add(15*time.Minute), expiresAt)
	s.Len(strings.Split(token, "."), 3)

	claims, err := s.service.ValidateAccessToken(token)
	s.Require().NoError(err)
	s.Equal(s.user.ID.String(), claims.UserID)
	s.Equal(s.user.Email, claims.Email)
	s.Equal(s.user.Email, claims.Subject)
	s.Equal(models.RoleUser, claims.Role)
	s.Equal(models.TokenTypeAccess, claims.TokenType)
	s.Equal("mita-test", claims.Issuer)
	s.NotEmpty(claims.ID)
}

func (s *TokenServiceTestSuite) TestRefreshTokenRoundTrip() {
	token, expiresAt, err := s.service.GenerateRefreshToken(s.user.ID)
	s.Require().NoError(err)
	s.Equal(s.clock.Add(7*24*time.Hour), expiresAt)

	claims, err := s.service.ValidateRefreshToken(token)
	s.Require().NoError(err)
	s.Equal(s.user.ID.String(), claims.UserID)
	s.Equal(models.TokenTypeRefresh, claims.TokenType)
	s.Empty(claims.Email)
	s.Empty(claims.Role)
}

func (s *TokenServiceTestSuite) TestGenerateRejectsMissingIdentity() {
	_, _, err := s.service.GenerateAccessToken(nil)
	s.Error(err)

	_, _, err = s.service.GenerateAccessToken(&models.User{Email: gofakeit.Email()})
	s.Error(err)

	_, _, err = s.service.GenerateRefreshToken(uuid.Nil)
	s.Error(err)
}

func (s *TokenServiceTestSuite) TestUniqueJTIs() {
	first, _, err := s.service.GenerateAccessToken(s.user)
	s.Require().NoError(err)
	second, _, err := s.service.GenerateAccessToken(s.user)
	s.Require().NoError(err)

	jti1, err := s.service.GetJTI(first)
	s.Require().NoError(err)
	jti2, err := s.service.GetJTI(second)
	s.Require().NoError(err)
	s.NotEqual(jti1, jti2)
}

func (s *TokenServiceTestSuite) TestTokenTypeEnforced() {
	refresh, _, err := s.service.GenerateRefreshToken(s.user.ID)
	s.Require().NoError(err)
	access, _, err := s.service.GenerateAccessToken(s.user)
	s.Require().NoError(err)

	_, err = s.service.ValidateAccessToken(refresh)
	s.ErrorIs(err, ErrInvalidTokenType)

	_, err = s.service.ValidateRefreshToken(access)
	s.ErrorIs(err, ErrInvalidTokenType)
}

func (s *TokenServiceTestSuite) TestExpiry() {
	token, _, err := s.service.GenerateAccessToken(s.user)
	s.Require().NoError(err)

	s.clock = s.clock.Add(15*time.Minute + clockSkew/2)
	_, err = s.service.ValidateAccessToken(token)
	s.NoError(err, "inside the leeway")

	s.clock = s.clock.Add(clockSkew)
	_, err = s.service.ValidateAccessToken(token)
	s.ErrorIs(err, ErrExpiredToken)
}

func (s *TokenServiceTestSuite) TestNotYetValid() {
	token, _, err := s.service.GenerateAccessToken(s.user)
	s.Require().NoError(err)

	s.clock = s.clock.Add(-time.Hour)
	_, err = s.service.ValidateAccessToken(token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestWrongIssuer() {
	other := s.cfg
	other.Issuer = "someone-else"
	token, _, err := s.newService(other).GenerateAccessToken(s.user)
	s.Require().NoError(err)

	_, err = s.service.ValidateAccessToken(token)
	s.ErrorIs(err, ErrInvalidIssuer)
}

func (s *TokenServiceTestSuite) TestForeignKey() {
	token, _, err := s.newService(s.newConfig("mita-test")).GenerateAccessToken(s.user)
	s.Require().NoError(err)

	_, err = s.service.ValidateAccessToken(token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestRejectsOtherAlgorithms() {
	claims := s.service.claims(s.user.ID, models.TokenTypeAccess, time.Hour)
	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("shared-secret"))
	s.Require().NoError(err)

	_, err = s.service.ValidateAccessToken(hs)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestMalformedInput() {
	_, err := s.service.ValidateAccessToken("")
	s.ErrorIs(err, ErrEmptyToken)

	for _, token := range []string{"abc", "a.b.c", gofakeit.LetterN(64)} {
		_, err := s.service.ValidateAccessToken(token)
		s.ErrorIs(err, ErrInvalidToken, token)
	}
}

func (s *TokenServiceTestSuite) TestExtractTokenFromHeader() {
	valid := map[string]string{
		"Bearer abc.def.ghi":   "abc.def.ghi",
		"bearer abc.def.ghi":   "abc.def.ghi",
		"BEARER  abc.def.ghi ": "abc.def.ghi",
	}
	for header, want := range valid {
		got, err := s.service.ExtractTokenFromHeader(header)
		s.NoError(err, header)
		s.Equal(want, got, header)
	}

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic abc", "abc.def.ghi", "Token abc"} {
		_, err := s.service.ExtractTokenFromHeader(header)
		s.ErrorIs(err, ErrInvalidAuthHeader, header)
	}
}

func (s *TokenServiceTestSuite) TestUnverifiedAccessors() {
	token, expiresAt, err := s.service.GenerateAccessToken(s.user)
	s.Require().NoError(err)

	jti, err := s.service.GetJTI(token)
	s.NoError(err)
	_, err = uuid.Parse(jti)
	s.NoError(err)

	exp, err := s.service.GetTokenExpiry(token)
	s.NoError(err)
	s.True(exp.Equal(expiresAt))

	_, err = s.service.GetJTI("")
	s.ErrorIs(err, ErrEmptyToken)
	_, err = s.service.GetTokenExpiry("garbage")
	s.ErrorIs(err, ErrInvalidToken)
}
