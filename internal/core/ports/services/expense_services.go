package services

import (
	"context"

	"github.com/expenseasy/expenseasy_backend/internal/core/approval"
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
)

// ExpenseSvcFacade is the expense lifecycle contract: creation with rule
// derivation, listing, and the approval recording/retraction operations that
// drive status re-evaluation.
type ExpenseSvcFacade interface {
	// CreateExpense submits an expense. Without an explicit rule payload the
	// matching approval policy (if any) is expanded and frozen onto the
	// expense; with neither, the expense falls back to any-manager-or-admin
	// approval.
	CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, creatorUserID string) (*domain.Expense, error)
	GetExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error)
	ListCompanyExpenses(ctx context.Context, companyID string, params dto.ListExpensesParams) ([]domain.Expense, *string, error)
	ListEmployeeExpenses(ctx context.Context, employeeID string, params dto.ListExpensesParams) ([]domain.Expense, *string, error)

	// RecordApproval appends one vote and re-evaluates the expense status.
	// Fails with ErrForbidden for ineligible voters, ErrDuplicate for a
	// second vote by the same approver.
	RecordApproval(ctx context.Context, expenseID, approverID string, req dto.RecordApprovalRequest) (*domain.Expense, error)
	// RetractApproval removes the approver's vote and re-evaluates; an
	// expense can move back from a terminal status to pending this way.
	RetractApproval(ctx context.Context, expenseID, approverID, requestingUserID string) (*domain.Expense, error)

	// GetApprovalProgress projects engine progress for UI display.
	GetApprovalProgress(ctx context.Context, expenseID string) (approval.Progress, error)
	// GetEligibleApprovers returns who may currently be asked to vote.
	GetEligibleApprovers(ctx context.Context, expenseID string) ([]domain.User, error)
}
