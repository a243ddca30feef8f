package pgsql

import (
	"context"
	"fmt"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	portsrepo "github.com/expenseasy/expenseasy_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CompanyRepository struct {
	db *pgxpool.Pool
}

func NewCompanyRepository(db *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{db: db}
}

var _ portsrepo.CompanyRepositoryFacade = (*CompanyRepository)(nil)

func (r *CompanyRepository) SaveCompany(ctx context.Context, company domain.Company) error {
	query := `
        INSERT INTO companies (company_id, name, currency_code, currency_name, currency_symbol,
            created_at, created_by, last_updated_at, last_updated_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
    `
	_, err := r.db.Exec(ctx, query,
		company.CompanyID,
		company.Name,
		company.Currency.Code,
		company.Currency.Name,
		company.Currency.Symbol,
		company.CreatedAt,
		company.CreatedBy,
		company.LastUpdatedAt,
		company.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}

func (r *CompanyRepository) FindCompanyByID(ctx context.Context, companyID string) (*domain.Company, error) {
	query := `
        SELECT company_id, name, currency_code, currency_name, currency_symbol,
            created_at, created_by, last_updated_at, last_updated_by
        FROM companies
        WHERE company_id = $1;
    `
	var company domain.Company
	err := r.db.QueryRow(ctx, query, companyID).Scan(
		&company.CompanyID,
		&company.Name,
		&company.Currency.Code,
		&company.Currency.Name,
		&company.Currency.Symbol,
		&company.CreatedAt,
		&company.CreatedBy,
		&company.LastUpdatedAt,
		&company.LastUpdatedBy,
	)
	if err != nil {
		return nil, mapNotFound(err, "company")
	}
	return &company, nil
}
