package pgsql

import (
	portsrepo "github.com/expenseasy/expenseasy_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every pgsql repository onto one shared pool.
func NewRepositoryProvider(db *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UserRepo:    NewUserRepository(db),
		CompanyRepo: NewCompanyRepository(db),
		PolicyRepo:  NewPolicyRepository(db),
		ExpenseRepo: NewExpenseRepository(db),
	}
}
