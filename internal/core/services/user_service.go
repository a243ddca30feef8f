package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/apperrors"
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	portsrepo "github.com/expenseasy/expenseasy_backend/internal/core/ports/repositories"
	portssvc "github.com/expenseasy/expenseasy_backend/internal/core/ports/services"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
	"github.com/expenseasy/expenseasy_backend/internal/utils"
	"github.com/google/uuid"
)

// userService implements the UserSvcFacade interface.
type userService struct {
	BaseService
	userRepo portsrepo.UserRepositoryFacade
}

// NewUserService creates a new user service.
func NewUserService(userRepo portsrepo.UserRepositoryFacade) portssvc.UserSvcFacade {
	return &userService{userRepo: userRepo}
}

var _ portssvc.UserSvcFacade = (*userService)(nil)

// CreateUser adds a user to the creator's company. Only admins may create
// users; the manager invariants (employees only, never self, same company)
// are enforced here.
func (s *userService) CreateUser(ctx context.Context, req dto.CreateUserRequest, creatorUserID string) (*domain.User, error) {
	creator, err := s.userRepo.FindUserByID(ctx, creatorUserID)
	if err != nil {
		return nil, err
	}
	if creator.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbiddenError("only admins may create users")
	}

	if _, err := s.userRepo.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.NewConflictError("email " + req.Email + " is already in use")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	newUserID := uuid.NewString()
	if err := s.validateManagerAssignment(ctx, newUserID, creator.CompanyID, req.Role, req.ManagerID); err != nil {
		return nil, err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		s.LogError(ctx, err, "Failed to hash password")
		return nil, apperrors.NewAppError(500, "failed to hash password", err)
	}

	now := time.Now()
	user := domain.User{
		UserID:       newUserID,
		Name:         req.Name,
		Email:        req.Email,
		Role:         req.Role,
		CompanyID:    creator.CompanyID,
		ManagerID:    req.ManagerID,
		PasswordHash: passwordHash,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		s.LogError(ctx, err, "Failed to save user", slog.String("email", req.Email))
		return nil, err
	}

	s.LogInfo(ctx, "User created", slog.String("user_id", user.UserID), slog.String("role", string(user.Role)))
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *userService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.FindUserByID(ctx, userID)
}

// GetUserByEmail retrieves a user by email.
func (s *userService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.FindUserByEmail(ctx, email)
}

// ListCompanyUsers returns all non-deleted users of a company.
func (s *userService) ListCompanyUsers(ctx context.Context, companyID string) ([]domain.User, error) {
	return s.userRepo.ListUsersByCompany(ctx, companyID)
}

// ListUsers returns a page of the company's users.
func (s *userService) ListUsers(ctx context.Context, companyID string, params dto.ListUsersParams) ([]domain.User, error) {
	return s.userRepo.ListUsersByCompanyPaginated(ctx, companyID, params.Limit, params.Offset)
}

// UpdateUser applies partial updates. Role changes away from employee clear
// the manager reference; manager assignment keeps the employee invariants.
func (s *userService) UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, updaterUserID string) (*domain.User, error) {
	updater, err := s.userRepo.FindUserByID(ctx, updaterUserID)
	if err != nil {
		return nil, err
	}
	if updater.Role != domain.RoleAdmin && updaterUserID != userID {
		return nil, apperrors.NewForbiddenError("only admins may update other users")
	}

	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		if updater.Role != domain.RoleAdmin {
			return nil, apperrors.NewForbiddenError("only admins may change roles")
		}
		user.Role = *req.Role
		if user.Role != domain.RoleEmployee {
			user.ManagerID = nil
		}
	}
	if req.ManagerID != nil {
		if err := s.validateManagerAssignment(ctx, user.UserID, user.CompanyID, user.Role, req.ManagerID); err != nil {
			return nil, err
		}
		user.ManagerID = req.ManagerID
	}

	user.LastUpdatedAt = time.Now()
	user.LastUpdatedBy = updaterUserID

	if err := s.userRepo.UpdateUser(ctx, *user); err != nil {
		s.LogError(ctx, err, "Failed to update user", slog.String("user_id", userID))
		return nil, err
	}
	return user, nil
}

// DeactivateUser soft deletes a user.
func (s *userService) DeactivateUser(ctx context.Context, userID string, deleterUserID string) error {
	deleter, err := s.userRepo.FindUserByID(ctx, deleterUserID)
	if err != nil {
		return err
	}
	if deleter.Role != domain.RoleAdmin {
		return apperrors.NewForbiddenError("only admins may deactivate users")
	}
	return s.userRepo.MarkUserDeleted(ctx, userID, deleterUserID, time.Now())
}

// SetRefreshToken stores (or clears) a user's refresh token hash.
func (s *userService) SetRefreshToken(ctx context.Context, userID string, tokenHash *string, expiresAt *time.Time) error {
	return s.userRepo.UpdateRefreshToken(ctx, userID, tokenHash, expiresAt)
}

// validateManagerAssignment enforces: manager assignment only for employees,
// never self, manager must exist, belong to the same company and be able to
// approve.
func (s *userService) validateManagerAssignment(ctx context.Context, userID, companyID string, role domain.UserRole, managerID *string) error {
	if managerID == nil {
		return nil
	}
	if role != domain.RoleEmployee {
		return apperrors.NewValidationFailedError("manager assignment is only permitted for employees")
	}
	if *managerID == userID {
		return apperrors.NewValidationFailedError("a user cannot be their own manager")
	}
	manager, err := s.userRepo.FindUserByID(ctx, *managerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewValidationFailedError("manager " + *managerID + " does not exist")
		}
		return err
	}
	if manager.CompanyID != companyID {
		return apperrors.NewValidationFailedError("manager must belong to the same company")
	}
	if !manager.Role.CanApprove() {
		return apperrors.NewValidationFailedError("manager must have the manager or admin role")
	}
	return nil
}
