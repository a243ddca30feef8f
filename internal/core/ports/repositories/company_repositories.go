package repositories

import (
	"context"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
)

// CompanyReader provides read access to companies.
type CompanyReader interface {
	// FindCompanyByID returns the company or apperrors.ErrNotFound.
	FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error)
}

// CompanyRepositoryFacade is the full company persistence contract.
type CompanyRepositoryFacade interface {
	CompanyReader
	SaveCompany(ctx context.Context, company domain.Company) error
}
