package services

import (
	"errors"
	"testing"

	"mita-backend/internal/dto"
	"mita-backend/internal/models"
	"mita-backend/internal/repositories"
	"mita-backend/internal/repositories/repository_mocks"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type UserServiceTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	userRepo *repository_mocks.MockUserRepositoryInterface
	service  UserServiceInterface
	user     *models.User
}

func (s *UserServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.userRepo = repository_mocks.NewMockUserRepositoryInterface(s.ctrl)
	s.service = NewUserService(s.userRepo)
	s.user = &models.User{
		ID:        uuid.New(),
		Email:     "current@example.com",
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Country:   "US",
		Timezone:  "UTC",
		Role:      models.RoleUser,
	}
}

func (s *UserServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func strPtr(v string) *string {
	return &v
}

func (s *UserServiceTestSuite) TestGetProfile_Success() {
	s.userRepo.EXPECT().GetByID(s.user.ID).Return(s.user, nil).Times(1)

	user, err := s.service.GetProfile(s.user.ID)

	s.NoError(err)
	s.Equal(s.user, user)
}

func (s *UserServiceTestSuite) TestGetProfile_NotFound() {
	s.userRepo.EXPECT().GetByID(s.user.ID).Return(nil, repositories.ErrUserNotFound).Times(1)

	user, err := s.service.GetProfile(s.user.ID)

	s.ErrorIs(err, ErrUserNotFound)
	s.Nil(user)
}

func (s *UserServiceTestSuite) TestGetProfile_NilID() {
	_, err := s.service.GetProfile(uuid.Nil)
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *UserServiceTestSuite) TestUpdateProfile_CountryAndTimezone() {
	req := &dto.UpdateProfileRequest{
		Country:  strPtr("de"),
		Timezone: strPtr("Europe/Berlin"),
	}

	s.userRepo.EXPECT().GetByID(s.user.ID).Return(s.user, nil).Times(1)
	s.userRepo.EXPECT().UpdateFields(s.user.ID, map[string]interface{}{
		"country":  "DE",
		"timezone": "Europe/Berlin",
	}).Return(nil).Times(1)

	user, err := s.service.UpdateProfile(s.user.ID, req)

	s.NoError(err)
	s.Equal("DE", user.Country)
	s.Equal("Europe/Berlin", user.Timezone)
}

func (s *UserServiceTestSuite) TestUpdateProfile_Email() {
	req := &dto.UpdateProfileRequest{Email: strPtr("New@Example.com")}

	s.userRepo.EXPECT().GetByID(s.user.ID).Return(s.user, nil).Times(1)
	s.userRepo.EXPECT().GetByEmailExcluding("new@example.com", s.user.ID).Return(nil, repositories.ErrUserNotFound).Times(1)
	s.userRepo.EXPECT().UpdateFields(s.user.ID, map[string]interface{}{"email": "new@example.com"}).Return(nil).Times(1)

	user, err := s.service.UpdateProfile(s.user.ID, req)

	s.NoError(err)
	s.Equal("new@example.com", user.Email)
}

func (s *UserServiceTestSuite) TestUpdateProfile_EmailTaken() {
	req := &dto.UpdateProfileRequest{Email: strPtr("taken@example.com")}
	other := &models.User{ID: uuid.New(), Email: "taken@example.com"}

	s.userRepo.EXPECT().GetByID(s.user.ID).Return(s.user, nil).Times(1)
	s.userRepo.EXPECT().GetByEmailExcluding("taken@example.com", s.user.ID).Return(other, nil).Times(1)

	user, err := s.service.UpdateProfile(s.user.ID, req)

	s.ErrorIs(err, ErrEmailAlreadyExists)
	s.Nil(user)
}

func (s *UserServiceTestSuite) TestUpdateProfile_SameEmailIsNoop() {
	req := &dto.UpdateProfileRequest{Email: strPtr(s.user.Email)}

	s.userRepo.EXPECT().GetByID(s.user.ID).Return(s.user, nil).Times(1)

	user, err := s.service.UpdateProfile(s.user.ID, req)

	s.NoError(err)
	s.Equal(s.user.Email, user.Email)
}

func (s *UserServiceTestSuite) TestUpdateProfile_InvalidTimezone() {
	req := &dto.UpdateProfileRequest{Timezone: strPtr("Mars/Olympus")}

	s.userRepo.EXPECT().GetByID(s.user.ID).Return(s.user, nil).Times(1)

	_, err := s.service.UpdateProfile(s.user.ID, req)

	s.ErrorIs(err, ErrInvalidProfile)
}

func (s *UserServiceTestSuite) TestUpdateProfile_Empty() {
	_, err := s.service.UpdateProfile(s.user.ID, &dto.UpdateProfileRequest{})
	s.ErrorIs(err, ErrEmptyUpdate)
}

func (s *UserServiceTestSuite) TestUpdateProfile_RepositoryError() {
	req := &dto.UpdateProfileRequest{Country: strPtr("FR")}

	s.userRepo.EXPECT().GetByID(s.user.ID).Return(s.user, nil).Times(1)
	s.userRepo.EXPECT().UpdateFields(s.user.ID, gomock.Any()).Return(errors.New("database down")).Times(1)

	_, err := s.service.UpdateProfile(s.user.ID, req)

	s.Error(err)
	s.Contains(err.Error(), "failed to update user profile")
}
