package services

import (
	"context"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
)

// CompanySvcFacade is the company management contract.
type CompanySvcFacade interface {
	// CreateCompany creates a company and records creatorUserID in its audit
	// fields. Signup wires the creator up as the company's first admin.
	CreateCompany(ctx context.Context, req dto.CreateCompanyRequest, creatorUserID string) (*domain.Company, error)
	GetCompanyByID(ctx context.Context, companyID string) (*domain.Company, error)
}
