package domain

// ApproverType discriminates policy approver entries. A "manager" entry is a
// virtual approver: it carries no user ID and is resolved to the target
// employee's actual manager when an expense is created.
type ApproverType string

const (
	ApproverTypeManager ApproverType = "manager"
	ApproverTypeUser    ApproverType = "user"
)

// ApprovalPolicyApprover is one entry of a policy's approver list.
// ApproverID is nil when ApproverType is ApproverTypeManager.
type ApprovalPolicyApprover struct {
	ApproverID   *string      `json:"approverID"`
	ApproverType ApproverType `json:"approverType"`
	Required     bool         `json:"required"`
	Order        int          `json:"order"`
}

// ApprovalPolicy is an admin-configured template describing how expenses for
// a scope (company, user and/or category) are routed for approval.
//
// Order values define a total order among approvers within one policy; ties
// are broken by array position.
type ApprovalPolicy struct {
	PolicyID              string                   `json:"policyID"`
	CompanyID             string                   `json:"companyID"`
	UserID                *string                  `json:"userID,omitempty"`   // scopes the policy to one employee
	Category              *string                  `json:"category,omitempty"` // scopes the policy to one expense category
	Description           string                   `json:"description"`
	IsManagerApprover     bool                     `json:"isManagerApprover"`
	ManagerFirst          bool                     `json:"managerFirst"`
	Sequential            bool                     `json:"sequential"`
	MinApprovalPercentage *int                     `json:"minApprovalPercentage,omitempty"` // 0-100
	Approvers             []ApprovalPolicyApprover `json:"approvers"`
	AuditFields
}
