// Package approval implements the approval-rule evaluation and sequencing
// engine. Every function is pure: it takes the full expense, approval and
// user snapshot and returns a result with no hidden state, so callers must
// serialize mutations per expense themselves (see the expense service).
package approval

import (
	"sort"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
)

// NormaliseSequentialSteps produces the canonical ordered step list used by
// every other engine operation.
//
// Steps from ApproverSequence are deduplicated by (approverID, order) and
// sorted by order ascending (ties keep their original position). When only
// the legacy RequiredApprovers list is present, steps are synthesized from it
// in array order, all required. An empty result signals "no explicit
// sequence": callers fall back to role-based eligibility.
func NormaliseSequentialSteps(rule *domain.ApprovalRule) []domain.ApprovalRuleApproverStep {
	if rule == nil {
		return nil
	}

	if len(rule.ApproverSequence) > 0 {
		type stepKey struct {
			approverID string
			order      int
		}
		seen := make(map[stepKey]bool, len(rule.ApproverSequence))
		steps := make([]domain.ApprovalRuleApproverStep, 0, len(rule.ApproverSequence))
		for _, step := range rule.ApproverSequence {
			key := stepKey{step.ApproverID, step.Order}
			if seen[key] {
				continue
			}
			seen[key] = true
			steps = append(steps, step)
		}
		sort.SliceStable(steps, func(i, j int) bool {
			return steps[i].Order < steps[j].Order
		})
		return steps
	}

	if len(rule.RequiredApprovers) > 0 {
		steps := make([]domain.ApprovalRuleApproverStep, len(rule.RequiredApprovers))
		for i, approverID := range rule.RequiredApprovers {
			steps[i] = domain.ApprovalRuleApproverStep{
				ApproverID: approverID,
				Order:      i,
				Required:   true,
			}
		}
		return steps
	}

	return nil
}

// GetEligibleApprovers returns the users permitted to vote on the expense
// under its rule.
//
// With explicit steps (or a legacy required-approver list) the eligible set
// is exactly those users, restricted to ones present in allUsers. Without any
// rule the fallback applies: every manager or admin in the employee's
// company. The fallback covers expenses created before any policy existed.
func GetEligibleApprovers(expense *domain.Expense, allUsers []domain.User) []domain.User {
	byID := make(map[string]int, len(allUsers))
	for i := range allUsers {
		byID[allUsers[i].UserID] = i
	}

	if steps := NormaliseSequentialSteps(expense.Rule); len(steps) > 0 {
		return usersForIDs(stepApproverIDs(steps), allUsers, byID)
	}
	if expense.Rule != nil && len(expense.Rule.RequiredApprovers) > 0 {
		return usersForIDs(expense.Rule.RequiredApprovers, allUsers, byID)
	}

	var companyID string
	if i, ok := byID[expense.EmployeeID]; ok {
		companyID = allUsers[i].CompanyID
	}

	eligible := make([]domain.User, 0)
	for _, u := range allUsers {
		if !u.Role.CanApprove() {
			continue
		}
		if companyID != "" && u.CompanyID != companyID {
			continue
		}
		eligible = append(eligible, u)
	}
	return eligible
}

// CanUserApprove reports whether the user may cast a vote on the expense
// right now. Terminal expenses accept no votes. For sequential rules only the
// approver of the first unvoted step may act, and a recorded rejection breaks
// the chain for everyone.
//
// "Cannot approve one's own expense" is an API-layer rule and is not checked
// here; callers must re-apply it.
func CanUserApprove(expense *domain.Expense, user *domain.User, allUsers []domain.User) bool {
	if expense.Status != domain.StatusPending {
		return false
	}

	rule := expense.Rule
	steps := NormaliseSequentialSteps(rule)

	if rule != nil && rule.Sequential && len(steps) > 0 {
		for _, step := range steps {
			recorded := expense.ApprovalByUser(step.ApproverID)
			if recorded == nil {
				return user.UserID == step.ApproverID
			}
			if recorded.Decision == domain.DecisionRejected {
				return false
			}
		}
		// Every step already satisfied.
		return false
	}

	if rule != nil && len(rule.RequiredApprovers) > 0 {
		for _, approverID := range rule.RequiredApprovers {
			if approverID == user.UserID {
				return true
			}
		}
		return false
	}

	for _, eligible := range GetEligibleApprovers(expense, allUsers) {
		if eligible.UserID == user.UserID {
			return true
		}
	}
	return false
}

// EvaluateApprovalRules derives the expense's overall status from its rule
// and recorded votes.
//
// Rejection by anyone is final and unconditional. Without a rule, a single
// approval suffices. Sequential rules gate everything on every required step
// holding an approval from its specific approver; only then are the
// percentage and specific-approver conditions consulted, combined per the
// rule's type (hybrid passes when either holds).
func EvaluateApprovalRules(expense *domain.Expense, allUsers []domain.User) domain.ExpenseStatus {
	approvedCount := 0
	for _, a := range expense.Approvals {
		switch a.Decision {
		case domain.DecisionRejected:
			return domain.StatusRejected
		case domain.DecisionApproved:
			approvedCount++
		}
	}

	rule := expense.Rule
	if rule == nil {
		if approvedCount > 0 {
			return domain.StatusApproved
		}
		return domain.StatusPending
	}

	steps := NormaliseSequentialSteps(rule)
	if rule.Sequential && len(steps) > 0 {
		for _, step := range steps {
			if !step.Required {
				continue
			}
			recorded := expense.ApprovalByUser(step.ApproverID)
			if recorded == nil || recorded.Decision != domain.DecisionApproved {
				return domain.StatusPending
			}
		}
	}

	percentageMet := false
	if rule.PercentageThreshold != nil {
		eligibleCount := len(GetEligibleApprovers(expense, allUsers))
		percentageMet = approvedCount >= requiredForPercentage(*rule.PercentageThreshold, eligibleCount)
	}

	specificMet := false
	if len(rule.RequiredApprovers) > 0 {
		specificMet = true
		for _, approverID := range rule.RequiredApprovers {
			recorded := expense.ApprovalByUser(approverID)
			if recorded == nil || recorded.Decision != domain.DecisionApproved {
				specificMet = false
				break
			}
		}
	}

	approved := false
	switch rule.Type {
	case domain.RuleTypePercentage:
		approved = percentageMet
	case domain.RuleTypeSpecificApprover:
		approved = specificMet
	case domain.RuleTypeHybrid:
		approved = percentageMet || specificMet
	}

	if approved {
		return domain.StatusApproved
	}
	return domain.StatusPending
}

// Progress is a read-only projection for UI progress bars. NextApproverID is
// set only for sequential rules whose chain is still advancing.
type Progress struct {
	Approved       int     `json:"approved"`
	Total          int     `json:"total"`
	Required       int     `json:"required"`
	NextApproverID *string `json:"nextApproverId,omitempty"`
}

// GetApprovalProgress summarises how far along the expense's approval is.
//
// For hybrid rules the required count is the max of the percentage-derived
// and specific-approver counts, deliberately stricter than the OR used for
// pass/fail: the progress display shows the harder bar while actual gating
// accepts the easier path.
func GetApprovalProgress(expense *domain.Expense, allUsers []domain.User) Progress {
	rule := expense.Rule
	if rule == nil {
		return Progress{}
	}

	steps := NormaliseSequentialSteps(rule)
	if rule.Sequential && len(steps) > 0 {
		p := Progress{Total: len(steps)}
		for _, step := range steps {
			if !step.Required {
				continue
			}
			p.Required++
			if recorded := expense.ApprovalByUser(step.ApproverID); recorded != nil && recorded.Decision == domain.DecisionApproved {
				p.Approved++
			}
		}
		if expense.Status == domain.StatusPending {
			if next, ok := GetNextSequentialApproverID(expense); ok {
				p.NextApproverID = &next
			}
		}
		return p
	}

	eligibleCount := len(GetEligibleApprovers(expense, allUsers))
	approvedCount := 0
	for _, a := range expense.Approvals {
		if a.Decision == domain.DecisionApproved {
			approvedCount++
		}
	}

	required := 0
	switch rule.Type {
	case domain.RuleTypePercentage:
		if rule.PercentageThreshold != nil {
			required = requiredForPercentage(*rule.PercentageThreshold, eligibleCount)
		}
	case domain.RuleTypeSpecificApprover:
		required = len(rule.RequiredApprovers)
	case domain.RuleTypeHybrid:
		percentageRequired := 0
		if rule.PercentageThreshold != nil {
			percentageRequired = requiredForPercentage(*rule.PercentageThreshold, eligibleCount)
		}
		required = max(percentageRequired, len(rule.RequiredApprovers))
	}

	return Progress{
		Approved: approvedCount,
		Total:    eligibleCount,
		Required: required,
	}
}

// GetNextSequentialApproverID returns the approver of the first step lacking
// a recorded decision. The second return is false when a rejection already
// broke the chain, all steps are satisfied, or the rule has no steps.
func GetNextSequentialApproverID(expense *domain.Expense) (string, bool) {
	steps := NormaliseSequentialSteps(expense.Rule)
	for _, step := range steps {
		recorded := expense.ApprovalByUser(step.ApproverID)
		if recorded == nil {
			return step.ApproverID, true
		}
		if recorded.Decision == domain.DecisionRejected {
			return "", false
		}
	}
	return "", false
}

// InitialApprovers computes the user IDs that should be notified right after
// expense creation: the first sequential step, else all required approvers,
// else the employee's manager, else every admin or manager in the company.
// Dispatch itself is the notifier collaborator's concern.
func InitialApprovers(expense *domain.Expense, employee *domain.User, allUsers []domain.User) []string {
	rule := expense.Rule
	if rule != nil {
		if steps := NormaliseSequentialSteps(rule); rule.Sequential && len(steps) > 0 {
			return []string{steps[0].ApproverID}
		}
		if len(rule.RequiredApprovers) > 0 {
			ids := make([]string, len(rule.RequiredApprovers))
			copy(ids, rule.RequiredApprovers)
			return ids
		}
	}

	if employee != nil && employee.ManagerID != nil {
		return []string{*employee.ManagerID}
	}

	ids := make([]string, 0)
	for _, u := range GetEligibleApprovers(expense, allUsers) {
		ids = append(ids, u.UserID)
	}
	return ids
}

// requiredForPercentage is ceil(threshold/100 * max(eligible, 1)) in integer
// arithmetic.
func requiredForPercentage(threshold, eligibleCount int) int {
	base := eligibleCount
	if base < 1 {
		base = 1
	}
	return (threshold*base + 99) / 100
}

func stepApproverIDs(steps []domain.ApprovalRuleApproverStep) []string {
	ids := make([]string, len(steps))
	for i, step := range steps {
		ids[i] = step.ApproverID
	}
	return ids
}

// usersForIDs maps IDs to users, dropping IDs with no matching user and
// duplicates, preserving the ID order.
func usersForIDs(ids []string, allUsers []domain.User, byID map[string]int) []domain.User {
	users := make([]domain.User, 0, len(ids))
	taken := make(map[string]bool, len(ids))
	for _, id := range ids {
		if taken[id] {
			continue
		}
		if i, ok := byID[id]; ok {
			users = append(users, allUsers[i])
			taken[id] = true
		}
	}
	return users
}
