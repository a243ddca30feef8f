package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/apperrors"
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	portssvc "github.com/expenseasy/expenseasy_backend/internal/core/ports/services"
	"github.com/expenseasy/expenseasy_backend/internal/core/services"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// MockUserRepository is a mock for the full user repository facade.
type MockUserRepository struct {
	MockUserReader
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) MarkUserDeleted(ctx context.Context, userID string, deletedBy string, deletedAt time.Time) error {
	args := m.Called(ctx, userID, deletedBy, deletedAt)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateRefreshToken(ctx context.Context, userID string, tokenHash *string, expiresAt *time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

type UserServiceTestSuite struct {
	suite.Suite
	mockUserRepo *MockUserRepository
	userService  portssvc.UserSvcFacade
	ctx          context.Context
}

func (suite *UserServiceTestSuite) SetupTest() {
	suite.mockUserRepo = new(MockUserRepository)
	suite.userService = services.NewUserService(suite.mockUserRepo)
	suite.ctx = context.Background()
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func (suite *UserServiceTestSuite) TestCreateUser_Success() {
	req := dto.CreateUserRequest{
		Name:     "New Employee",
		Email:    "new@example.com",
		Password: "password123",
		Role:     domain.RoleEmployee,
	}
	admin := &domain.User{UserID: "adm-1", Role: domain.RoleAdmin, CompanyID: "co-1"}

	suite.mockUserRepo.On("FindUserByID", suite.ctx, "adm-1").Return(admin, nil).Once()
	suite.mockUserRepo.On("FindUserByEmail", suite.ctx, "new@example.com").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockUserRepo.On("SaveUser", suite.ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Email == "new@example.com" &&
			u.CompanyID == "co-1" &&
			u.Role == domain.RoleEmployee &&
			u.PasswordHash != "" &&
			u.PasswordHash != "password123"
	})).Return(nil).Once()

	user, err := suite.userService.CreateUser(suite.ctx, req, "adm-1")

	suite.Require().NoError(err)
	suite.NotEmpty(user.UserID)
	suite.Equal("adm-1", user.CreatedBy)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestCreateUser_NonAdminForbidden() {
	req := dto.CreateUserRequest{Name: "X", Email: "x@example.com", Password: "password123", Role: domain.RoleEmployee}
	manager := &domain.User{UserID: "mgr-1", Role: domain.RoleManager, CompanyID: "co-1"}

	suite.mockUserRepo.On("FindUserByID", suite.ctx, "mgr-1").Return(manager, nil).Once()

	_, err := suite.userService.CreateUser(suite.ctx, req, "mgr-1")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockUserRepo.AssertNotCalled(suite.T(), "SaveUser", mock.Anything, mock.Anything)
}

func (suite *UserServiceTestSuite) TestCreateUser_EmailInUseConflicts() {
	req := dto.CreateUserRequest{Name: "X", Email: "taken@example.com", Password: "password123", Role: domain.RoleEmployee}
	admin := &domain.User{UserID: "adm-1", Role: domain.RoleAdmin, CompanyID: "co-1"}
	existing := &domain.User{UserID: "usr-9", Email: "taken@example.com"}

	suite.mockUserRepo.On("FindUserByID", suite.ctx, "adm-1").Return(admin, nil).Once()
	suite.mockUserRepo.On("FindUserByEmail", suite.ctx, "taken@example.com").Return(existing, nil).Once()

	_, err := suite.userService.CreateUser(suite.ctx, req, "adm-1")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
}

func (suite *UserServiceTestSuite) TestCreateUser_ManagerMustApprove() {
	managerID := "emp-9"
	req := dto.CreateUserRequest{
		Name:      "X",
		Email:     "x@example.com",
		Password:  "password123",
		Role:      domain.RoleEmployee,
		ManagerID: &managerID,
	}
	admin := &domain.User{UserID: "adm-1", Role: domain.RoleAdmin, CompanyID: "co-1"}
	notAManager := &domain.User{UserID: "emp-9", Role: domain.RoleEmployee, CompanyID: "co-1"}

	suite.mockUserRepo.On("FindUserByID", suite.ctx, "adm-1").Return(admin, nil).Once()
	suite.mockUserRepo.On("FindUserByEmail", suite.ctx, "x@example.com").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockUserRepo.On("FindUserByID", suite.ctx, "emp-9").Return(notAManager, nil).Once()

	_, err := suite.userService.CreateUser(suite.ctx, req, "adm-1")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *UserServiceTestSuite) TestCreateUser_ManagerOnlyForEmployees() {
	managerID := "mgr-1"
	req := dto.CreateUserRequest{
		Name:      "X",
		Email:     "x@example.com",
		Password:  "password123",
		Role:      domain.RoleManager,
		ManagerID: &managerID,
	}
	admin := &domain.User{UserID: "adm-1", Role: domain.RoleAdmin, CompanyID: "co-1"}

	suite.mockUserRepo.On("FindUserByID", suite.ctx, "adm-1").Return(admin, nil).Once()
	suite.mockUserRepo.On("FindUserByEmail", suite.ctx, "x@example.com").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.userService.CreateUser(suite.ctx, req, "adm-1")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *UserServiceTestSuite) TestUpdateUser_RoleChangeClearsManager() {
	managerID := "mgr-1"
	user := &domain.User{UserID: "emp-1", Role: domain.RoleEmployee, CompanyID: "co-1", ManagerID: &managerID}
	admin := &domain.User{UserID: "adm-1", Role: domain.RoleAdmin, CompanyID: "co-1"}
	newRole := domain.RoleManager

	suite.mockUserRepo.On("FindUserByID", suite.ctx, "adm-1").Return(admin, nil).Once()
	suite.mockUserRepo.On("FindUserByID", suite.ctx, "emp-1").Return(user, nil).Once()
	suite.mockUserRepo.On("UpdateUser", suite.ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Role == domain.RoleManager && u.ManagerID == nil
	})).Return(nil).Once()

	updated, err := suite.userService.UpdateUser(suite.ctx, "emp-1", dto.UpdateUserRequest{Role: &newRole}, "adm-1")

	suite.Require().NoError(err)
	suite.Nil(updated.ManagerID)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *UserServiceTestSuite) TestUpdateUser_SelfUpdateCannotChangeRole() {
	user := &domain.User{UserID: "emp-1", Role: domain.RoleEmployee, CompanyID: "co-1"}
	newRole := domain.RoleAdmin

	suite.mockUserRepo.On("FindUserByID", suite.ctx, "emp-1").Return(user, nil).Twice()

	_, err := suite.userService.UpdateUser(suite.ctx, "emp-1", dto.UpdateUserRequest{Role: &newRole}, "emp-1")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *UserServiceTestSuite) TestDeactivateUser_AdminOnly() {
	manager := &domain.User{UserID: "mgr-1", Role: domain.RoleManager, CompanyID: "co-1"}

	suite.mockUserRepo.On("FindUserByID", suite.ctx, "mgr-1").Return(manager, nil).Once()

	err := suite.userService.DeactivateUser(suite.ctx, "emp-1", "mgr-1")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.mockUserRepo.AssertNotCalled(suite.T(), "MarkUserDeleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
