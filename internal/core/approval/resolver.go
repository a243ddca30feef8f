package approval

import (
	"sort"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
)

// managerOrderSentinel places the auto-included manager step ahead of every
// explicit policy entry before the final re-sort and renumbering.
const managerOrderSentinel = -1

// ExpandPolicy turns a matched policy into the concrete, deduplicated and
// ordered approver steps for one employee's expense.
//
// The employee's manager is inserted as the first step when the policy says
// so, and every virtual "manager" entry resolves to that same manager ID.
// The first occurrence of an approver wins; later duplicates are dropped.
// When the employee has no manager, manager steps are omitted entirely
// rather than kept as unresolvable placeholders. The assembled steps are
// re-sorted by their resolved order (ties by assembly position) and
// renumbered 0..n-1.
//
// Policy approvers are expected pre-sorted by (order, array position), which
// is how the policy repository returns them.
func ExpandPolicy(policy *domain.ApprovalPolicy, employee *domain.User) []domain.ApprovalRuleApproverStep {
	steps := make([]domain.ApprovalRuleApproverStep, 0, len(policy.Approvers)+1)
	present := make(map[string]bool, len(policy.Approvers)+1)

	add := func(approverID string, order int, required bool, kind domain.ApproverType) {
		if approverID == "" || present[approverID] {
			return
		}
		present[approverID] = true
		steps = append(steps, domain.ApprovalRuleApproverStep{
			ApproverID: approverID,
			Order:      order,
			Required:   required,
			Type:       kind,
		})
	}

	if policy.IsManagerApprover && employee.ManagerID != nil {
		add(*employee.ManagerID, managerOrderSentinel, true, domain.ApproverTypeManager)
	}

	for _, entry := range policy.Approvers {
		switch entry.ApproverType {
		case domain.ApproverTypeManager:
			if employee.ManagerID != nil {
				add(*employee.ManagerID, entry.Order, entry.Required, domain.ApproverTypeManager)
			}
		case domain.ApproverTypeUser:
			if entry.ApproverID != nil {
				add(*entry.ApproverID, entry.Order, entry.Required, domain.ApproverTypeUser)
			}
		}
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
	for i := range steps {
		steps[i].Order = i
	}
	return steps
}

// DeriveRule freezes a resolved approver list and the policy's settings into
// the immutable rule attached to an expense at creation time.
//
// Any multi-party or manager-gated flow defaults to sequential even when the
// policy does not flag it explicitly.
func DeriveRule(policy *domain.ApprovalPolicy, steps []domain.ApprovalRuleApproverStep) *domain.ApprovalRule {
	requiredApprovers := make([]string, 0, len(steps))
	hasManagerStep := false
	for _, step := range steps {
		if step.Required {
			requiredApprovers = append(requiredApprovers, step.ApproverID)
		}
		if step.Type == domain.ApproverTypeManager {
			hasManagerStep = true
		}
	}

	sequential := policy.Sequential ||
		len(steps) > 1 ||
		(hasManagerStep && policy.IsManagerApprover)

	ruleType := domain.RuleTypeSpecificApprover
	if policy.MinApprovalPercentage != nil {
		if len(steps) > 0 {
			ruleType = domain.RuleTypeHybrid
		} else {
			ruleType = domain.RuleTypePercentage
		}
	}

	rule := &domain.ApprovalRule{
		Type:                ruleType,
		PercentageThreshold: policy.MinApprovalPercentage,
		ManagerFirst:        policy.ManagerFirst,
		Sequential:          sequential,
	}
	if len(requiredApprovers) > 0 {
		rule.RequiredApprovers = requiredApprovers
	}
	if len(steps) > 0 {
		rule.ApproverSequence = steps
	}
	return rule
}
