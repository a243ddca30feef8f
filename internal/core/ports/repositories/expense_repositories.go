package repositories

import (
	"context"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
)

// ExpenseReader provides read access to expenses and their approvals.
type ExpenseReader interface {
	// FindExpenseByID returns the expense with its full time-ordered
	// approval list, or apperrors.ErrNotFound.
	FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error)
	// ListExpensesByCompany returns a page of company expenses ordered by
	// date descending, with a next-page token when more rows remain.
	ListExpensesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.Expense, *string, error)
	// ListExpensesByEmployee returns a page of one employee's expenses.
	ListExpensesByEmployee(ctx context.Context, employeeID string, limit int, nextToken *string) ([]domain.Expense, *string, error)
}

// ExpenseWriter provides write access to expenses and their approvals.
type ExpenseWriter interface {
	// SaveExpense persists a new expense with its frozen rule snapshot.
	SaveExpense(ctx context.Context, expense domain.Expense) error
	// SaveApproval appends a vote. The storage layer's unique constraint on
	// (expense_id, approver_id) is the authoritative duplicate guard; a
	// violation surfaces as apperrors.ErrDuplicate.
	SaveApproval(ctx context.Context, approval domain.Approval) error
	// DeleteApprovalsByApprover removes the approver's vote(s) from the
	// expense and returns how many rows were deleted.
	DeleteApprovalsByApprover(ctx context.Context, expenseID, approverID string) (int64, error)
	// UpdateExpenseStatus persists a recomputed status.
	UpdateExpenseStatus(ctx context.Context, expenseID string, status domain.ExpenseStatus, updatedBy string, updatedAt time.Time) error
}

// ExpenseRepositoryFacade is the full expense persistence contract.
type ExpenseRepositoryFacade interface {
	ExpenseReader
	ExpenseWriter
}
