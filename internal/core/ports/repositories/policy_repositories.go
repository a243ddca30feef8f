package repositories

import (
	"context"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
)

// PolicyListFilter narrows ListPolicies. Zero values mean "no filter".
type PolicyListFilter struct {
	CompanyID string
	UserID    string
	Category  string
}

// PolicyRepositoryFacade is the approval-policy persistence contract.
// Approver lists are always returned ordered by (order, array position).
type PolicyRepositoryFacade interface {
	SavePolicy(ctx context.Context, policy domain.ApprovalPolicy) error
	// FindPolicyByID returns the policy with its approvers or apperrors.ErrNotFound.
	FindPolicyByID(ctx context.Context, policyID string) (*domain.ApprovalPolicy, error)
	// FindMatchingPolicy resolves the most specific policy for an employee
	// and category: (user, category) > (user, nil) > (nil, category) >
	// (nil, nil). Returns apperrors.ErrNotFound when nothing matches.
	FindMatchingPolicy(ctx context.Context, companyID, employeeID, category string) (*domain.ApprovalPolicy, error)
	ListPolicies(ctx context.Context, filter PolicyListFilter) ([]domain.ApprovalPolicy, error)
	// UpdatePolicy replaces the policy row; when replaceApprovers is true the
	// approver list is replaced wholesale with policy.Approvers.
	UpdatePolicy(ctx context.Context, policy domain.ApprovalPolicy, replaceApprovers bool) error
	DeletePolicy(ctx context.Context, policyID string) error
}
