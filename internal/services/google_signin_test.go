package services

import (
	"context"
	"errors"
	"testing"

	"mita-backend/internal/models"
	"mita-backend/internal/repositories"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

type stubGoogleVerifier struct {
	identity *GoogleIdentity
	err      error
	tokens   []string
}

func (v *stubGoogleVerifier) Verify(_ context.Context, idToken string) (*GoogleIdentity, error) {
	v.tokens = append(v.tokens, idToken)
	return v.identity, v.err
}

func verifiedIdentity(email string) *GoogleIdentity {
	return &GoogleIdentity{
		Subject:       "110248495921238986420",
		Email:         email,
		EmailVerified: true,
		GivenName:     "Nadia",
		FamilyName:    "Petrova",
	}
}

func (s *AuthServiceTestSuite) TestGoogleSignIn_Disabled() {
	tokens, err := s.authService.GoogleSignIn(context.Background(), "id-token", testIP, testAgent)

	s.ErrorIs(err, ErrGoogleSignInDisabled)
	s.Nil(tokens)
}

func (s *AuthServiceTestSuite) TestGoogleSignIn_ExistingUser() {
	user := s.newUser()
	user.FailedLoginAttempts = 2
	verifier := &stubGoogleVerifier{identity: verifiedIdentity("  " + user.Email)}
	svc := s.build(WithGoogleVerifier(verifier))

	s.users.EXPECT().GetByEmail(user.Email).Return(user, nil)
	s.users.EXPECT().UpdateFailedLoginAttempts(user).Return(nil)
	s.expectIssue(user, "access", "refresh")
	s.expectEvent(AuthEventGoogleLogin)

	tokens, err := svc.GoogleSignIn(context.Background(), "id-token", testIP, testAgent)

	s.Require().NoError(err)
	s.Equal("access", tokens.AccessToken)
	s.Equal("refresh", tokens.RefreshToken)
	s.Equal([]string{"id-token"}, verifier.tokens)
	s.Zero(user.FailedLoginAttempts)
	s.Require().NotNil(user.LastLoginAt)
	s.Equal(s.now, *user.LastLoginAt)
}

func (s *AuthServiceTestSuite) TestGoogleSignIn_CreatesAccount() {
	svc := s.build(WithGoogleVerifier(&stubGoogleVerifier{identity: verifiedIdentity("Nadia.Petrova@Example.com")}))

	var created *models.User
	s.users.EXPECT().GetByEmail("nadia.petrova@example.com").Return(nil, repositories.ErrUserNotFound)
	s.passwords.EXPECT().HashPassword(gomock.Any()).DoAndReturn(func(password string) (string, error) {
		s.GreaterOrEqual(len(password), 40)
		return "$2a$12$random", nil
	})
	s.users.EXPECT().Create(gomock.Any()).DoAndReturn(func(u *models.User) error {
		created = u
		return nil
	})
	s.users.EXPECT().UpdateFailedLoginAttempts(gomock.Any()).Return(nil)
	s.tokens.EXPECT().GenerateAccessToken(gomock.Any()).Return("access", s.now, nil)
	s.tokens.EXPECT().GenerateRefreshToken(gomock.Any()).Return("refresh", s.now, nil)
	s.sessions.EXPECT().Create(gomock.Any()).Return(nil)
	s.expectEvent(AuthEventRegister)
	s.expectEvent(AuthEventGoogleLogin)

	tokens, err := svc.GoogleSignIn(context.Background(), "id-token", testIP, testAgent)

	s.Require().NoError(err)
	s.Equal("access", tokens.AccessToken)
	s.Require().NotNil(created)
	s.Equal("nadia.petrova@example.com", created.Email)
	s.Equal("Nadia", created.FirstName)
	s.Equal("Petrova", created.LastName)
	s.Equal("$2a$12$random", created.PasswordHash)
	s.Equal(models.RoleUser, created.Role)
}

func (s *AuthServiceTestSuite) TestGoogleSignIn_Rejections() {
	s.Run("token rejected", func() {
		svc := s.build(WithGoogleVerifier(&stubGoogleVerifier{err: errors.New("token expired")}))
		s.expectEvent(AuthEventLoginFailed)

		_, err := svc.GoogleSignIn(context.Background(), "id-token", testIP, testAgent)
		s.ErrorIs(err, ErrInvalidGoogleToken)
	})

	s.Run("email unverified", func() {
		identity := verifiedIdentity("someone@example.com")
		identity.EmailVerified = false
		svc := s.build(WithGoogleVerifier(&stubGoogleVerifier{identity: identity}))
		s.expectEvent(AuthEventLoginFailed)

		_, err := svc.GoogleSignIn(context.Background(), "id-token", testIP, testAgent)
		s.ErrorIs(err, ErrInvalidGoogleToken)
	})

	s.Run("locked account", func() {
		user := s.newUser()
		user.LockedAt = &s.now
		svc := s.build(WithGoogleVerifier(&stubGoogleVerifier{identity: verifiedIdentity(user.Email)}))
		s.users.EXPECT().GetByEmail(user.Email).Return(user, nil)
		s.expectEvent(AuthEventLoginFailed)

		_, err := svc.GoogleSignIn(context.Background(), "id-token", testIP, testAgent)
		s.ErrorIs(err, ErrAccountLocked)
	})

	s.Run("lookup failure", func() {
		svc := s.build(WithGoogleVerifier(&stubGoogleVerifier{identity: verifiedIdentity("down@example.com")}))
		s.users.EXPECT().GetByEmail("down@example.com").Return(nil, errors.New("connection reset"))

		_, err := svc.GoogleSignIn(context.Background(), "id-token", testIP, testAgent)
		s.ErrorContains(err, "connection reset")
	})
}

type stubIDTokenValidator struct {
	payload  *idtoken.Payload
	err      error
	audience string
}

func (v *stubIDTokenValidator) Validate(_ context.Context, _ string, audience string) (*idtoken.Payload, error) {
	v.audience = audience
	return v.payload, v.err
}

func TestGoogleVerifier_Verify(t *testing.T) {
	validator := &stubIDTokenValidator{payload: &idtoken.Payload{
		Issuer:  "https://accounts.google.com",
		Subject: "1102484959",
		Claims: map[string]interface{}{
			"email":          "nadia@example.com",
			"email_verified": true,
			"given_name":     "Nadia",
			"family_name":    "Petrova",
		},
	}}
	verifier := &GoogleVerifier{clientID: "mita.apps.googleusercontent.com", validator: validator}

	identity, err := verifier.Verify(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "mita.apps.googleusercontent.com", validator.audience)
	assert.Equal(t, &GoogleIdentity{
		Subject:       "1102484959",
		Email:         "nadia@example.com",
		EmailVerified: true,
		GivenName:     "Nadia",
		FamilyName:    "Petrova",
	}, identity)

	validator.payload.Claims["email_verified"] = "false"
	identity, err = verifier.Verify(context.Background(), "id-token")
	require.NoError(t, err)
	assert.False(t, identity.EmailVerified)

	validator.payload.Issuer = "https://evil.example.com"
	_, err = verifier.Verify(context.Background(), "id-token")
	assert.ErrorContains(t, err, "unexpected issuer")

	validator.err = errors.New("audience mismatch")
	_, err = verifier.Verify(context.Background(), "id-token")
	assert.ErrorContains(t, err, "audience mismatch")
}
