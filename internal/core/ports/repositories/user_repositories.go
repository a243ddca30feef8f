package repositories

import (
	"context"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
)

// UserReader provides read access to users.
type UserReader interface {
	// FindUserByID returns the user or apperrors.ErrNotFound.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
	// FindUserByEmail returns the user or apperrors.ErrNotFound.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// ListUsersByCompany returns all non-deleted users of a company.
	ListUsersByCompany(ctx context.Context, companyID string) ([]domain.User, error)
	// ListUsersByCompanyPaginated returns a page of non-deleted company users.
	ListUsersByCompanyPaginated(ctx context.Context, companyID string, limit, offset int) ([]domain.User, error)
}

// UserWriter provides write access to users.
type UserWriter interface {
	SaveUser(ctx context.Context, user domain.User) error
	UpdateUser(ctx context.Context, user domain.User) error
	MarkUserDeleted(ctx context.Context, userID string, deletedBy string, deletedAt time.Time) error
	// UpdateRefreshToken stores the hash and expiry of a user's refresh
	// token; nil values clear it.
	UpdateRefreshToken(ctx context.Context, userID string, tokenHash *string, expiresAt *time.Time) error
}

// UserRepositoryFacade is the full user persistence contract.
type UserRepositoryFacade interface {
	UserReader
	UserWriter
}
