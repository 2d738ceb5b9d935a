package handlers

import (
	"net/http"
	"testing"
	"time"

	"mita-backend/internal/dto"
	"mita-backend/internal/models"
	"mita-backend/internal/services"
	"mita-backend/internal/services/service_mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
)

func TestUserHandler(t *testing.T) {
	suite.Run(t, new(UserHandlerSuite))
}

type UserHandlerSuite struct {
	suite.Suite
	ctrl            *gomock.Controller
	userService     *service_mocks.MockUserServiceInterface
	passwordService *service_mocks.MockPasswordServiceInterface
	handler         *UserHandler
	e               *echo.Echo
	userID          uuid.UUID
}

func (s *UserHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.userService = service_mocks.NewMockUserServiceInterface(s.ctrl)
	s.passwordService = service_mocks.NewMockPasswordServiceInterface(s.ctrl)
	s.handler = NewUserHandler(s.userService, s.passwordService)
	s.e = newTestEcho()
	s.userID = uuid.New()
}

func (s *UserHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *UserHandlerSuite) user() *models.User {
	return &models.User{
		ID:        s.userID,
		Email:     "me@example.com",
		Country:   "FR",
		Timezone:  "Europe/Paris",
		Role:      models.RoleUser,
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (s *UserHandlerSuite) TestGetProfile() {
	s.userService.EXPECT().GetProfile(s.userID).Return(s.user(), nil).Times(1)

	c, rec := newUserContext(s.e, s.userID, http.MethodGet, "/users/me", nil)

	s.NoError(s.handler.GetProfile(c))
	s.Equal(http.StatusOK, rec.Code)

	var profile dto.UserProfileResponse
	decodeData(s.T(), rec, &profile)
	s.Equal("me@example.com", profile.Email)
	s.Equal("Europe/Paris", profile.Timezone)
	s.Equal(models.ReferralCodeFor(s.userID), profile.ReferralCode)
}

func (s *UserHandlerSuite) TestGetProfile_Unauthenticated() {
	c, rec := newJSONContext(s.e, http.MethodGet, "/users/me", nil)

	s.NoError(s.handler.GetProfile(c))
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("AUTH_002", errorCodeOf(s.T(), rec))
}

func (s *UserHandlerSuite) TestGetProfile_Deleted() {
	s.userService.EXPECT().GetProfile(s.userID).Return(nil, services.ErrUserNotFound).Times(1)

	c, rec := newUserContext(s.e, s.userID, http.MethodGet, "/users/me", nil)

	s.NoError(s.handler.GetProfile(c))
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("AUTH_008", errorCodeOf(s.T(), rec))
}

func (s *UserHandlerSuite) TestUpdateProfile() {
	updated := s.user()
	updated.Country = "IT"

	s.userService.EXPECT().
		UpdateProfile(s.userID, gomock.Any()).
		DoAndReturn(func(_ uuid.UUID, req *dto.UpdateProfileRequest) (*models.User, error) {
			s.Require().NotNil(req.Country)
			s.Equal("IT", *req.Country)
			s.Nil(req.Email)
			return updated, nil
		}).
		Times(1)

	c, rec := newUserContext(s.e, s.userID, http.MethodPatch, "/users/me", map[string]string{"country": "IT"})

	s.NoError(s.handler.UpdateProfile(c))
	s.Equal(http.StatusOK, rec.Code)

	var profile dto.UserProfileResponse
	decodeData(s.T(), rec, &profile)
	s.Equal("IT", profile.Country)
}

func (s *UserHandlerSuite) TestUpdateProfile_Errors() {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"empty update", services.ErrEmptyUpdate, http.StatusBadRequest, "VALIDATION_002"},
		{"invalid timezone", services.ErrInvalidProfile, http.StatusBadRequest, "VALIDATION_003"},
		{"email taken", services.ErrEmailAlreadyExists, http.StatusConflict, "AUTH_007"},
		{"user gone", services.ErrUserNotFound, http.StatusNotFound, "AUTH_008"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.userService.EXPECT().UpdateProfile(s.userID, gomock.Any()).Return(nil, tc.err).Times(1)

			c, rec := newUserContext(s.e, s.userID, http.MethodPatch, "/users/me", map[string]string{})

			s.NoError(s.handler.UpdateProfile(c))
			s.Equal(tc.status, rec.Code)
			s.Equal(tc.code, errorCodeOf(s.T(), rec))
		})
	}
}

func (s *UserHandlerSuite) TestUpdateProfile_InvalidEmail() {
	c, _ := newUserContext(s.e, s.userID, http.MethodPatch, "/users/me", map[string]string{"email": "not-an-email"})

	s.Error(s.handler.UpdateProfile(c))
}

func (s *UserHandlerSuite) TestChangePassword() {
	s.passwordService.EXPECT().
		ChangePassword(s.userID, "OldPassword123!", "NewPassword456!").
		Return(nil).
		Times(1)

	c, rec := newUserContext(s.e, s.userID, http.MethodPut, "/users/me/password", map[string]string{
		"current_password": "OldPassword123!",
		"new_password":     "NewPassword456!",
	})

	s.NoError(s.handler.ChangePassword(c))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *UserHandlerSuite) TestChangePassword_Errors() {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"wrong current password", services.ErrCurrentPasswordWrong, http.StatusUnauthorized, "AUTH_001"},
		{"same password", services.ErrSamePassword, http.StatusBadRequest, "VALIDATION_003"},
		{"policy violation", services.ErrPasswordNoUppercase, http.StatusBadRequest, "VALIDATION_003"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.passwordService.EXPECT().ChangePassword(s.userID, gomock.Any(), gomock.Any()).Return(tc.err).Times(1)

			c, rec := newUserContext(s.e, s.userID, http.MethodPut, "/users/me/password", map[string]string{
				"current_password": "OldPassword123!",
				"new_password":     "newpassword456!",
			})

			s.NoError(s.handler.ChangePassword(c))
			s.Equal(tc.status, rec.Code)
			s.Equal(tc.code, errorCodeOf(s.T(), rec))
		})
	}
}
