package dto

import (
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
)

// ManagerVirtualID is the wire sentinel a policy-editing client sends to mean
// "the employee's actual manager, resolved at expense-creation time". It is
// confined to this serialization boundary: internally a manager entry is a
// typed approver with no user ID.
const ManagerVirtualID = "__MANAGER__"

// PolicyApproverDTO is one approver entry as it travels over the wire.
// Required defaults to true and Order to the array position when omitted.
type PolicyApproverDTO struct {
	ApproverID string `json:"approverId" binding:"required"`
	Required   *bool  `json:"required"`
	Order      *int   `json:"order"`
}

// CreatePolicyRequest defines the data needed to create an approval policy.
type CreatePolicyRequest struct {
	CompanyID             string              `json:"companyId" binding:"required"`
	UserID                *string             `json:"userId"`
	Category              *string             `json:"category"`
	Description           string              `json:"description"`
	IsManagerApprover     bool                `json:"isManagerApprover"`
	ManagerFirst          bool                `json:"managerFirst"`
	Sequential            bool                `json:"sequential"`
	MinApprovalPercentage *int                `json:"minApprovalPercentage" binding:"omitempty,min=0,max=100"`
	Approvers             []PolicyApproverDTO `json:"approvers"`
}

// UpdatePolicyRequest mirrors CreatePolicyRequest; a nil Approvers slice
// leaves the existing approver list untouched.
type UpdatePolicyRequest struct {
	UserID                *string             `json:"userId"`
	Category              *string             `json:"category"`
	Description           *string             `json:"description"`
	IsManagerApprover     *bool               `json:"isManagerApprover"`
	ManagerFirst          *bool               `json:"managerFirst"`
	Sequential            *bool               `json:"sequential"`
	MinApprovalPercentage *int                `json:"minApprovalPercentage" binding:"omitempty,min=0,max=100"`
	Approvers             []PolicyApproverDTO `json:"approvers"`
}

// ListPoliciesParams defines query filters for listing policies.
type ListPoliciesParams struct {
	CompanyID string `form:"companyId"`
	UserID    string `form:"userId"`
	Category  string `form:"category"`
}

// PolicyResponse serializes a policy back out for editing. Virtual manager
// entries are re-emitted as the ManagerVirtualID sentinel, never as a real
// user ID.
type PolicyResponse struct {
	PolicyID              string              `json:"id"`
	CompanyID             string              `json:"companyId"`
	UserID                *string             `json:"userId,omitempty"`
	Category              *string             `json:"category,omitempty"`
	Description           string              `json:"description"`
	IsManagerApprover     bool                `json:"isManagerApprover"`
	ManagerFirst          bool                `json:"managerFirst"`
	Sequential            bool                `json:"sequential"`
	MinApprovalPercentage *int                `json:"minApprovalPercentage,omitempty"`
	Approvers             []PolicyApproverDTO `json:"approvers"`
}

// ToPolicyApprovers converts wire approver entries into domain entries,
// resolving the ManagerVirtualID sentinel into a typed virtual approver.
func ToPolicyApprovers(approvers []PolicyApproverDTO) []domain.ApprovalPolicyApprover {
	converted := make([]domain.ApprovalPolicyApprover, len(approvers))
	for i, a := range approvers {
		required := true
		if a.Required != nil {
			required = *a.Required
		}
		order := i
		if a.Order != nil {
			order = *a.Order
		}
		if a.ApproverID == ManagerVirtualID {
			converted[i] = domain.ApprovalPolicyApprover{
				ApproverType: domain.ApproverTypeManager,
				Required:     required,
				Order:        order,
			}
			continue
		}
		approverID := a.ApproverID
		converted[i] = domain.ApprovalPolicyApprover{
			ApproverID:   &approverID,
			ApproverType: domain.ApproverTypeUser,
			Required:     required,
			Order:        order,
		}
	}
	return converted
}

// ToPolicyResponse converts a domain policy to its wire form.
func ToPolicyResponse(policy *domain.ApprovalPolicy) PolicyResponse {
	approvers := make([]PolicyApproverDTO, len(policy.Approvers))
	for i, a := range policy.Approvers {
		approverID := ManagerVirtualID
		if a.ApproverType == domain.ApproverTypeUser && a.ApproverID != nil {
			approverID = *a.ApproverID
		}
		required := a.Required
		order := a.Order
		approvers[i] = PolicyApproverDTO{
			ApproverID: approverID,
			Required:   &required,
			Order:      &order,
		}
	}
	return PolicyResponse{
		PolicyID:              policy.PolicyID,
		CompanyID:             policy.CompanyID,
		UserID:                policy.UserID,
		Category:              policy.Category,
		Description:           policy.Description,
		IsManagerApprover:     policy.IsManagerApprover,
		ManagerFirst:          policy.ManagerFirst,
		Sequential:            policy.Sequential,
		MinApprovalPercentage: policy.MinApprovalPercentage,
		Approvers:             approvers,
	}
}

// ToListPolicyResponse converts a slice of policies to their wire forms.
func ToListPolicyResponse(policies []domain.ApprovalPolicy) []PolicyResponse {
	responses := make([]PolicyResponse, len(policies))
	for i := range policies {
		responses[i] = ToPolicyResponse(&policies[i])
	}
	return responses
}
