package services

import (
	"context"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
)

// PolicyResolverSvc resolves the approval policy that applies to one
// employee's expense. Used by the expense service at creation time.
type PolicyResolverSvc interface {
	// ResolvePolicy returns the most specific matching policy or nil when
	// none exists (nil policy, nil error).
	ResolvePolicy(ctx context.Context, companyID, employeeID, category string) (*domain.ApprovalPolicy, error)
}

// PolicySvcFacade is the approval-policy management contract.
type PolicySvcFacade interface {
	PolicyResolverSvc
	CreatePolicy(ctx context.Context, req dto.CreatePolicyRequest, creatorUserID string) (*domain.ApprovalPolicy, error)
	GetPolicyByID(ctx context.Context, policyID string) (*domain.ApprovalPolicy, error)
	ListPolicies(ctx context.Context, params dto.ListPoliciesParams) ([]domain.ApprovalPolicy, error)
	UpdatePolicy(ctx context.Context, policyID string, req dto.UpdatePolicyRequest, updaterUserID string) (*domain.ApprovalPolicy, error)
	DeletePolicy(ctx context.Context, policyID string, deleterUserID string) error
}
