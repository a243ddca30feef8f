package domain

// ApprovalRuleType selects which condition approves an expense.
type ApprovalRuleType string

const (
	RuleTypePercentage       ApprovalRuleType = "percentage"
	RuleTypeSpecificApprover ApprovalRuleType = "specific_approver"
	RuleTypeHybrid           ApprovalRuleType = "hybrid"
)

// ApprovalRuleApproverStep is one step of an ordered approval sequence.
type ApprovalRuleApproverStep struct {
	ApproverID string       `json:"approverId"`
	Order      int          `json:"order"`
	Required   bool         `json:"required"`
	Type       ApproverType `json:"type,omitempty"`
	Label      string       `json:"label,omitempty"`
}

// ApprovalRule is the immutable per-expense snapshot derived from a policy
// (or supplied explicitly) when the expense is created.
//
// Fields that do not apply to the rule's type are simply absent; the engine
// treats missing fields as "condition not applicable" so malformed rules
// degrade to never-satisfied instead of failing evaluation.
type ApprovalRule struct {
	Type                ApprovalRuleType           `json:"type"`
	PercentageThreshold *int                       `json:"percentageThreshold,omitempty"` // 0-100
	RequiredApprovers   []string                   `json:"requiredApprovers,omitempty"`
	ApproverSequence    []ApprovalRuleApproverStep `json:"approverSequence,omitempty"`
	ManagerFirst        bool                       `json:"managerFirst,omitempty"`
	Sequential          bool                       `json:"sequential,omitempty"`
}
