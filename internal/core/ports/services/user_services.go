package services

import (
	"context"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
)

// UserReaderSvc provides read access to users for other services.
type UserReaderSvc interface {
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListCompanyUsers(ctx context.Context, companyID string) ([]domain.User, error)
}

// UserSvcFacade is the full user management contract.
type UserSvcFacade interface {
	UserReaderSvc
	// CreateUser adds a user to the creator's company. Only admins may
	// create users; manager assignment follows the role invariants.
	CreateUser(ctx context.Context, req dto.CreateUserRequest, creatorUserID string) (*domain.User, error)
	UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, updaterUserID string) (*domain.User, error)
	DeactivateUser(ctx context.Context, userID string, deleterUserID string) error
	ListUsers(ctx context.Context, companyID string, params dto.ListUsersParams) ([]domain.User, error)
	// SetRefreshToken stores (or clears, with nils) a user's refresh token hash.
	SetRefreshToken(ctx context.Context, userID string, tokenHash *string, expiresAt *time.Time) error
}
