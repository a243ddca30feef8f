package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/apperrors"
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	portsrepo "github.com/expenseasy/expenseasy_backend/internal/core/ports/repositories"
	portssvc "github.com/expenseasy/expenseasy_backend/internal/core/ports/services"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
	"github.com/google/uuid"
)

// policyService implements the PolicySvcFacade interface.
type policyService struct {
	BaseService
	policyRepo portsrepo.PolicyRepositoryFacade
	userRepo   portsrepo.UserReader
}

// NewPolicyService creates a new policy service.
func NewPolicyService(policyRepo portsrepo.PolicyRepositoryFacade, userRepo portsrepo.UserReader) portssvc.PolicySvcFacade {
	return &policyService{policyRepo: policyRepo, userRepo: userRepo}
}

var _ portssvc.PolicySvcFacade = (*policyService)(nil)

// CreatePolicy stores a new approval policy. Only admins of the policy's
// company may create one.
func (s *policyService) CreatePolicy(ctx context.Context, req dto.CreatePolicyRequest, creatorUserID string) (*domain.ApprovalPolicy, error) {
	if err := s.authorizeAdmin(ctx, creatorUserID, req.CompanyID); err != nil {
		return nil, err
	}
	if err := validatePolicyApprovers(ctx, s.userRepo, req.CompanyID, req.Approvers); err != nil {
		return nil, err
	}

	now := time.Now()
	policy := domain.ApprovalPolicy{
		PolicyID:              uuid.NewString(),
		CompanyID:             req.CompanyID,
		UserID:                req.UserID,
		Category:              req.Category,
		Description:           req.Description,
		IsManagerApprover:     req.IsManagerApprover,
		ManagerFirst:          req.ManagerFirst,
		Sequential:            req.Sequential,
		MinApprovalPercentage: req.MinApprovalPercentage,
		Approvers:             dto.ToPolicyApprovers(req.Approvers),
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.policyRepo.SavePolicy(ctx, policy); err != nil {
		s.LogError(ctx, err, "Failed to save policy", slog.String("company_id", req.CompanyID))
		return nil, err
	}

	s.LogInfo(ctx, "Approval policy created", slog.String("policy_id", policy.PolicyID))
	return &policy, nil
}

// GetPolicyByID retrieves a policy with its approver list.
func (s *policyService) GetPolicyByID(ctx context.Context, policyID string) (*domain.ApprovalPolicy, error) {
	return s.policyRepo.FindPolicyByID(ctx, policyID)
}

// ListPolicies returns policies matching the given filters.
func (s *policyService) ListPolicies(ctx context.Context, params dto.ListPoliciesParams) ([]domain.ApprovalPolicy, error) {
	return s.policyRepo.ListPolicies(ctx, portsrepo.PolicyListFilter{
		CompanyID: params.CompanyID,
		UserID:    params.UserID,
		Category:  params.Category,
	})
}

// UpdatePolicy applies partial updates; a rule already frozen onto an
// expense is never touched by this.
func (s *policyService) UpdatePolicy(ctx context.Context, policyID string, req dto.UpdatePolicyRequest, updaterUserID string) (*domain.ApprovalPolicy, error) {
	policy, err := s.policyRepo.FindPolicyByID(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeAdmin(ctx, updaterUserID, policy.CompanyID); err != nil {
		return nil, err
	}

	if req.UserID != nil {
		policy.UserID = req.UserID
	}
	if req.Category != nil {
		policy.Category = req.Category
	}
	if req.Description != nil {
		policy.Description = *req.Description
	}
	if req.IsManagerApprover != nil {
		policy.IsManagerApprover = *req.IsManagerApprover
	}
	if req.ManagerFirst != nil {
		policy.ManagerFirst = *req.ManagerFirst
	}
	if req.Sequential != nil {
		policy.Sequential = *req.Sequential
	}
	if req.MinApprovalPercentage != nil {
		policy.MinApprovalPercentage = req.MinApprovalPercentage
	}

	replaceApprovers := req.Approvers != nil
	if replaceApprovers {
		if err := validatePolicyApprovers(ctx, s.userRepo, policy.CompanyID, req.Approvers); err != nil {
			return nil, err
		}
		policy.Approvers = dto.ToPolicyApprovers(req.Approvers)
	}

	policy.LastUpdatedAt = time.Now()
	policy.LastUpdatedBy = updaterUserID

	if err := s.policyRepo.UpdatePolicy(ctx, *policy, replaceApprovers); err != nil {
		s.LogError(ctx, err, "Failed to update policy", slog.String("policy_id", policyID))
		return nil, err
	}
	return policy, nil
}

// DeletePolicy removes a policy. Expenses that already froze a rule derived
// from it are unaffected.
func (s *policyService) DeletePolicy(ctx context.Context, policyID string, deleterUserID string) error {
	policy, err := s.policyRepo.FindPolicyByID(ctx, policyID)
	if err != nil {
		return err
	}
	if err := s.authorizeAdmin(ctx, deleterUserID, policy.CompanyID); err != nil {
		return err
	}
	return s.policyRepo.DeletePolicy(ctx, policyID)
}

// ResolvePolicy finds the most specific matching policy for an employee and
// category, or nil when none exists.
func (s *policyService) ResolvePolicy(ctx context.Context, companyID, employeeID, category string) (*domain.ApprovalPolicy, error) {
	policy, err := s.policyRepo.FindMatchingPolicy(ctx, companyID, employeeID, category)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return policy, nil
}

func (s *policyService) authorizeAdmin(ctx context.Context, userID, companyID string) error {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role != domain.RoleAdmin || user.CompanyID != companyID {
		return apperrors.NewForbiddenError("only company admins may manage approval policies")
	}
	return nil
}

// validatePolicyApprovers checks that every concrete approver entry refers
// to an existing user of the company. Virtual manager entries carry no ID
// and are resolved per-expense instead.
func validatePolicyApprovers(ctx context.Context, userRepo portsrepo.UserReader, companyID string, approvers []dto.PolicyApproverDTO) error {
	for _, a := range approvers {
		if a.ApproverID == dto.ManagerVirtualID {
			continue
		}
		user, err := userRepo.FindUserByID(ctx, a.ApproverID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NewValidationFailedError("approver " + a.ApproverID + " does not exist")
			}
			return err
		}
		if user.CompanyID != companyID {
			return apperrors.NewValidationFailedError("approver " + a.ApproverID + " belongs to another company")
		}
	}
	return nil
}
