package approval_test

import (
	"testing"

	"github.com/expenseasy/expenseasy_backend/internal/core/approval"
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func user(id string, role domain.UserRole, companyID string) domain.User {
	return domain.User{UserID: id, Name: "User " + id, Role: role, CompanyID: companyID}
}

func pendingExpense(employeeID string, rule *domain.ApprovalRule, approvals ...domain.Approval) *domain.Expense {
	return &domain.Expense{
		ExpenseID:  "exp-1",
		Status:     domain.StatusPending,
		EmployeeID: employeeID,
		Rule:       rule,
		Approvals:  approvals,
	}
}

func vote(approverID string, decision domain.Decision) domain.Approval {
	return domain.Approval{
		ApprovalID: "ap-" + approverID,
		ExpenseID:  "exp-1",
		ApproverID: approverID,
		Decision:   decision,
	}
}

// seqRule mirrors what DeriveRule builds: required step approvers double as
// the rule's required-approver list.
func seqRule(sequential bool, steps ...domain.ApprovalRuleApproverStep) *domain.ApprovalRule {
	required := make([]string, 0, len(steps))
	for _, s := range steps {
		if s.Required {
			required = append(required, s.ApproverID)
		}
	}
	return &domain.ApprovalRule{
		Type:              domain.RuleTypeSpecificApprover,
		RequiredApprovers: required,
		ApproverSequence:  steps,
		Sequential:        sequential,
	}
}

func step(approverID string, order int, required bool) domain.ApprovalRuleApproverStep {
	return domain.ApprovalRuleApproverStep{ApproverID: approverID, Order: order, Required: required}
}

func TestNormaliseSequentialSteps(t *testing.T) {
	t.Run("nil rule yields no steps", func(t *testing.T) {
		assert.Nil(t, approval.NormaliseSequentialSteps(nil))
	})

	t.Run("sorts by order keeping ties stable", func(t *testing.T) {
		rule := seqRule(true, step("c", 2, true), step("a", 0, true), step("b", 0, false))
		steps := approval.NormaliseSequentialSteps(rule)
		require.Len(t, steps, 3)
		assert.Equal(t, "a", steps[0].ApproverID)
		assert.Equal(t, "b", steps[1].ApproverID)
		assert.Equal(t, "c", steps[2].ApproverID)
	})

	t.Run("deduplicates identical approver and order pairs", func(t *testing.T) {
		rule := seqRule(true, step("a", 0, true), step("a", 0, true), step("a", 1, true))
		steps := approval.NormaliseSequentialSteps(rule)
		require.Len(t, steps, 2)
		assert.Equal(t, 0, steps[0].Order)
		assert.Equal(t, 1, steps[1].Order)
	})

	t.Run("synthesizes steps from legacy required approvers", func(t *testing.T) {
		rule := &domain.ApprovalRule{
			Type:              domain.RuleTypeSpecificApprover,
			RequiredApprovers: []string{"x", "y"},
		}
		steps := approval.NormaliseSequentialSteps(rule)
		require.Len(t, steps, 2)
		assert.Equal(t, "x", steps[0].ApproverID)
		assert.Equal(t, 0, steps[0].Order)
		assert.True(t, steps[0].Required)
		assert.Equal(t, "y", steps[1].ApproverID)
		assert.Equal(t, 1, steps[1].Order)
	})

	t.Run("idempotent on its own output", func(t *testing.T) {
		rule := seqRule(true, step("c", 5, true), step("a", 1, true), step("a", 1, true))
		once := approval.NormaliseSequentialSteps(rule)
		again := approval.NormaliseSequentialSteps(&domain.ApprovalRule{
			Type:             rule.Type,
			ApproverSequence: once,
			Sequential:       true,
		})
		assert.Equal(t, once, again)
	})
}

func TestEvaluateApprovalRules_RejectionDominance(t *testing.T) {
	// A single rejection is final even when the percentage condition holds.
	rule := &domain.ApprovalRule{
		Type:                domain.RuleTypePercentage,
		PercentageThreshold: ptr(50),
	}
	allUsers := []domain.User{
		user("emp", domain.RoleEmployee, "co"),
		user("m1", domain.RoleManager, "co"),
		user("m2", domain.RoleManager, "co"),
	}
	expense := pendingExpense("emp", rule,
		vote("m1", domain.DecisionApproved),
		vote("m2", domain.DecisionApproved),
		vote("a1", domain.DecisionRejected),
	)

	assert.Equal(t, domain.StatusRejected, approval.EvaluateApprovalRules(expense, allUsers))
}

func TestEvaluateApprovalRules_NoRule(t *testing.T) {
	allUsers := []domain.User{
		user("emp", domain.RoleEmployee, "co"),
		user("mgr", domain.RoleManager, "co"),
	}

	t.Run("pending without votes", func(t *testing.T) {
		expense := pendingExpense("emp", nil)
		assert.Equal(t, domain.StatusPending, approval.EvaluateApprovalRules(expense, allUsers))
	})

	t.Run("single approval approves", func(t *testing.T) {
		expense := pendingExpense("emp", nil, vote("mgr", domain.DecisionApproved))
		assert.Equal(t, domain.StatusApproved, approval.EvaluateApprovalRules(expense, allUsers))
	})
}

func TestEvaluateApprovalRules_SequentialGate(t *testing.T) {
	rule := seqRule(true, step("a", 0, true), step("b", 1, true), step("c", 2, true))
	allUsers := []domain.User{
		user("emp", domain.RoleEmployee, "co"),
		user("a", domain.RoleManager, "co"),
		user("b", domain.RoleManager, "co"),
		user("c", domain.RoleAdmin, "co"),
	}

	t.Run("out of order approvals do not pass the gate", func(t *testing.T) {
		// a and c approved, b still missing: every required step must hold an
		// approval before the rule's conditions are even consulted.
		expense := pendingExpense("emp", rule,
			vote("a", domain.DecisionApproved),
			vote("c", domain.DecisionApproved),
		)
		assert.Equal(t, domain.StatusPending, approval.EvaluateApprovalRules(expense, allUsers))
	})

	t.Run("all required steps approved passes", func(t *testing.T) {
		expense := pendingExpense("emp", rule,
			vote("a", domain.DecisionApproved),
			vote("b", domain.DecisionApproved),
			vote("c", domain.DecisionApproved),
		)
		assert.Equal(t, domain.StatusApproved, approval.EvaluateApprovalRules(expense, allUsers))
	})

	t.Run("optional steps are not gated on", func(t *testing.T) {
		optional := seqRule(true, step("a", 0, true), step("b", 1, false))
		expense := pendingExpense("emp", optional, vote("a", domain.DecisionApproved))
		assert.Equal(t, domain.StatusApproved, approval.EvaluateApprovalRules(expense, allUsers))
	})
}

func TestEvaluateApprovalRules_Percentage(t *testing.T) {
	allUsers := []domain.User{
		user("emp", domain.RoleEmployee, "co"),
		user("m1", domain.RoleManager, "co"),
		user("m2", domain.RoleManager, "co"),
		user("m3", domain.RoleManager, "co"),
	}
	rule := &domain.ApprovalRule{
		Type:                domain.RuleTypePercentage,
		PercentageThreshold: ptr(50),
	}

	t.Run("one of three eligible is below the ceiling", func(t *testing.T) {
		// ceil(50% of 3) = 2
		expense := pendingExpense("emp", rule, vote("m1", domain.DecisionApproved))
		assert.Equal(t, domain.StatusPending, approval.EvaluateApprovalRules(expense, allUsers))
	})

	t.Run("two of three eligible meets the ceiling", func(t *testing.T) {
		expense := pendingExpense("emp", rule,
			vote("m1", domain.DecisionApproved),
			vote("m2", domain.DecisionApproved),
		)
		assert.Equal(t, domain.StatusApproved, approval.EvaluateApprovalRules(expense, allUsers))
	})

	t.Run("zero eligible approvers uses base of one", func(t *testing.T) {
		expense := pendingExpense("emp", rule, vote("ghost", domain.DecisionApproved))
		assert.Equal(t, domain.StatusApproved, approval.EvaluateApprovalRules(expense, []domain.User{}))
	})
}

func TestEvaluateApprovalRules_SpecificApprover(t *testing.T) {
	rule := &domain.ApprovalRule{
		Type:              domain.RuleTypeSpecificApprover,
		RequiredApprovers: []string{"cfo", "cto"},
	}
	allUsers := []domain.User{
		user("emp", domain.RoleEmployee, "co"),
		user("cfo", domain.RoleAdmin, "co"),
		user("cto", domain.RoleAdmin, "co"),
	}

	t.Run("partial required approvals stay pending", func(t *testing.T) {
		expense := pendingExpense("emp", rule, vote("cfo", domain.DecisionApproved))
		assert.Equal(t, domain.StatusPending, approval.EvaluateApprovalRules(expense, allUsers))
	})

	t.Run("all required approvals approve", func(t *testing.T) {
		expense := pendingExpense("emp", rule,
			vote("cfo", domain.DecisionApproved),
			vote("cto", domain.DecisionApproved),
		)
		assert.Equal(t, domain.StatusApproved, approval.EvaluateApprovalRules(expense, allUsers))
	})
}

func TestEvaluateApprovalRules_HybridEitherConditionPasses(t *testing.T) {
	allUsers := []domain.User{
		user("emp", domain.RoleEmployee, "co"),
		user("cfo", domain.RoleAdmin, "co"),
		user("m1", domain.RoleManager, "co"),
		user("m2", domain.RoleManager, "co"),
		user("m3", domain.RoleManager, "co"),
	}

	t.Run("specific path alone suffices", func(t *testing.T) {
		// Three eligible approvers make the 100% threshold unreachable with a
		// single vote; the required-approver condition carries it.
		rule := &domain.ApprovalRule{
			Type:                domain.RuleTypeHybrid,
			PercentageThreshold: ptr(100),
			RequiredApprovers:   []string{"cfo"},
			ApproverSequence: []domain.ApprovalRuleApproverStep{
				step("cfo", 0, true),
				step("m1", 1, false),
				step("m2", 2, false),
			},
		}
		expense := pendingExpense("emp", rule, vote("cfo", domain.DecisionApproved))
		assert.Equal(t, domain.StatusApproved, approval.EvaluateApprovalRules(expense, allUsers))
	})

	t.Run("percentage path alone suffices", func(t *testing.T) {
		// Two of four approvals meet the 50% threshold exactly while the
		// required-approver list is still incomplete.
		rule := &domain.ApprovalRule{
			Type:                domain.RuleTypeHybrid,
			PercentageThreshold: ptr(50),
			RequiredApprovers:   []string{"cfo", "m1", "m2", "m3"},
		}
		expense := pendingExpense("emp", rule,
			vote("m1", domain.DecisionApproved),
			vote("m2", domain.DecisionApproved),
		)
		assert.Equal(t, domain.StatusApproved, approval.EvaluateApprovalRules(expense, allUsers))

		// Pure function: re-evaluating the same snapshot gives the same answer.
		assert.Equal(t, domain.StatusApproved, approval.EvaluateApprovalRules(expense, allUsers))
	})
}

func TestGetApprovalProgress(t *testing.T) {
	t.Run("hybrid required count is the max of both conditions", func(t *testing.T) {
		// Progress shows the stricter bar even though gating accepts the
		// easier path.
		rule := &domain.ApprovalRule{
			Type:                domain.RuleTypeHybrid,
			PercentageThreshold: ptr(100),
			RequiredApprovers:   []string{"cfo"},
			ApproverSequence: []domain.ApprovalRuleApproverStep{
				step("cfo", 0, true),
				step("m1", 1, false),
				step("m2", 2, false),
			},
		}
		allUsers := []domain.User{
			user("emp", domain.RoleEmployee, "co"),
			user("cfo", domain.RoleAdmin, "co"),
			user("m1", domain.RoleManager, "co"),
			user("m2", domain.RoleManager, "co"),
		}
		expense := pendingExpense("emp", rule, vote("cfo", domain.DecisionApproved))

		p := approval.GetApprovalProgress(expense, allUsers)
		assert.Equal(t, 1, p.Approved)
		assert.Equal(t, 3, p.Total)
		assert.Equal(t, 3, p.Required) // max(ceil(100% of 3), 1)
	})

	t.Run("sequential rule counts required steps", func(t *testing.T) {
		rule := seqRule(true, step("a", 0, true), step("b", 1, false), step("c", 2, true))
		expense := pendingExpense("emp", rule, vote("a", domain.DecisionApproved))

		p := approval.GetApprovalProgress(expense, nil)
		assert.Equal(t, 1, p.Approved)
		assert.Equal(t, 3, p.Total)
		assert.Equal(t, 2, p.Required)
		if assert.NotNil(t, p.NextApproverID) {
			assert.Equal(t, "b", *p.NextApproverID)
		}
	})

	t.Run("next approver clears once the chain breaks", func(t *testing.T) {
		rule := seqRule(true, step("a", 0, true), step("b", 1, true))
		expense := pendingExpense("emp", rule,
			vote("a", domain.DecisionApproved),
			vote("b", domain.DecisionRejected),
		)

		p := approval.GetApprovalProgress(expense, nil)
		assert.Nil(t, p.NextApproverID)
	})

	t.Run("no rule yields zero progress", func(t *testing.T) {
		p := approval.GetApprovalProgress(pendingExpense("emp", nil), nil)
		assert.Equal(t, approval.Progress{}, p)
	})
}

func TestCanUserApprove(t *testing.T) {
	allUsers := []domain.User{
		user("emp", domain.RoleEmployee, "co"),
		user("a", domain.RoleManager, "co"),
		user("b", domain.RoleManager, "co"),
		user("c", domain.RoleAdmin, "co"),
		user("other", domain.RoleManager, "other-co"),
	}

	t.Run("terminal expense accepts no votes", func(t *testing.T) {
		expense := pendingExpense("emp", nil)
		expense.Status = domain.StatusApproved
		u := user("a", domain.RoleManager, "co")
		assert.False(t, approval.CanUserApprove(expense, &u, allUsers))
	})

	t.Run("sequential rule admits only the first unvoted step", func(t *testing.T) {
		rule := seqRule(true, step("a", 0, true), step("b", 1, true))
		expense := pendingExpense("emp", rule, vote("a", domain.DecisionApproved))

		userA := user("a", domain.RoleManager, "co")
		userB := user("b", domain.RoleManager, "co")
		assert.False(t, approval.CanUserApprove(expense, &userA, allUsers))
		assert.True(t, approval.CanUserApprove(expense, &userB, allUsers))
	})

	t.Run("rejection breaks the sequential chain", func(t *testing.T) {
		rule := seqRule(true, step("a", 0, true), step("b", 1, true))
		expense := pendingExpense("emp", rule, vote("a", domain.DecisionRejected))

		userB := user("b", domain.RoleManager, "co")
		assert.False(t, approval.CanUserApprove(expense, &userB, allUsers))
	})

	t.Run("no rule falls back to company managers and admins", func(t *testing.T) {
		expense := pendingExpense("emp", nil)
		mgr := user("a", domain.RoleManager, "co")
		foreign := user("other", domain.RoleManager, "other-co")
		employee := user("emp", domain.RoleEmployee, "co")

		assert.True(t, approval.CanUserApprove(expense, &mgr, allUsers))
		assert.False(t, approval.CanUserApprove(expense, &foreign, allUsers))
		assert.False(t, approval.CanUserApprove(expense, &employee, allUsers))
	})
}

func TestGetEligibleApprovers(t *testing.T) {
	allUsers := []domain.User{
		user("emp", domain.RoleEmployee, "co"),
		user("a", domain.RoleManager, "co"),
		user("b", domain.RoleAdmin, "co"),
		user("other", domain.RoleManager, "other-co"),
	}

	t.Run("explicit steps define the eligible set", func(t *testing.T) {
		rule := seqRule(true, step("a", 0, true), step("gone", 1, true))
		eligible := approval.GetEligibleApprovers(pendingExpense("emp", rule), allUsers)
		require.Len(t, eligible, 1)
		assert.Equal(t, "a", eligible[0].UserID)
	})

	t.Run("fallback is company managers and admins", func(t *testing.T) {
		eligible := approval.GetEligibleApprovers(pendingExpense("emp", nil), allUsers)
		require.Len(t, eligible, 2)
		assert.Equal(t, "a", eligible[0].UserID)
		assert.Equal(t, "b", eligible[1].UserID)
	})
}

func TestGetNextSequentialApproverID(t *testing.T) {
	rule := seqRule(true, step("a", 0, true), step("b", 1, true))

	t.Run("first unvoted step is next", func(t *testing.T) {
		next, ok := approval.GetNextSequentialApproverID(pendingExpense("emp", rule))
		require.True(t, ok)
		assert.Equal(t, "a", next)
	})

	t.Run("advances past approved steps", func(t *testing.T) {
		expense := pendingExpense("emp", rule, vote("a", domain.DecisionApproved))
		next, ok := approval.GetNextSequentialApproverID(expense)
		require.True(t, ok)
		assert.Equal(t, "b", next)
	})

	t.Run("rejection ends the chain", func(t *testing.T) {
		expense := pendingExpense("emp", rule, vote("a", domain.DecisionRejected))
		_, ok := approval.GetNextSequentialApproverID(expense)
		assert.False(t, ok)
	})

	t.Run("all steps satisfied", func(t *testing.T) {
		expense := pendingExpense("emp", rule,
			vote("a", domain.DecisionApproved),
			vote("b", domain.DecisionApproved),
		)
		_, ok := approval.GetNextSequentialApproverID(expense)
		assert.False(t, ok)
	})
}

func TestInitialApprovers(t *testing.T) {
	allUsers := []domain.User{
		user("emp", domain.RoleEmployee, "co"),
		user("mgr", domain.RoleManager, "co"),
		user("adm", domain.RoleAdmin, "co"),
	}

	t.Run("sequential rule notifies only the first step", func(t *testing.T) {
		rule := seqRule(true, step("mgr", 0, true), step("adm", 1, true))
		employee := user("emp", domain.RoleEmployee, "co")
		ids := approval.InitialApprovers(pendingExpense("emp", rule), &employee, allUsers)
		assert.Equal(t, []string{"mgr"}, ids)
	})

	t.Run("non-sequential required approvers are all notified", func(t *testing.T) {
		rule := &domain.ApprovalRule{
			Type:              domain.RuleTypeSpecificApprover,
			RequiredApprovers: []string{"mgr", "adm"},
		}
		employee := user("emp", domain.RoleEmployee, "co")
		ids := approval.InitialApprovers(pendingExpense("emp", rule), &employee, allUsers)
		assert.Equal(t, []string{"mgr", "adm"}, ids)
	})

	t.Run("no rule falls back to the manager", func(t *testing.T) {
		employee := user("emp", domain.RoleEmployee, "co")
		employee.ManagerID = ptr("mgr")
		ids := approval.InitialApprovers(pendingExpense("emp", nil), &employee, allUsers)
		assert.Equal(t, []string{"mgr"}, ids)
	})

	t.Run("no rule and no manager falls back to eligible approvers", func(t *testing.T) {
		employee := user("emp", domain.RoleEmployee, "co")
		ids := approval.InitialApprovers(pendingExpense("emp", nil), &employee, allUsers)
		assert.Equal(t, []string{"mgr", "adm"}, ids)
	})
}

// Mirrors the canonical three-step flow: manager first, then finance, with a
// 60% threshold over the two named approvers plus the resolved manager.
func TestEvaluateApprovalRules_EndToEndScenario(t *testing.T) {
	rule := &domain.ApprovalRule{
		Type:                domain.RuleTypeHybrid,
		PercentageThreshold: ptr(60),
		RequiredApprovers:   []string{"mgr", "fin"},
		ApproverSequence: []domain.ApprovalRuleApproverStep{
			step("mgr", 0, true),
			step("fin", 1, true),
		},
		Sequential: true,
	}
	allUsers := []domain.User{
		user("emp", domain.RoleEmployee, "co"),
		user("mgr", domain.RoleManager, "co"),
		user("fin", domain.RoleAdmin, "co"),
	}

	expense := pendingExpense("emp", rule)
	assert.Equal(t, domain.StatusPending, approval.EvaluateApprovalRules(expense, allUsers))

	mgr := user("mgr", domain.RoleManager, "co")
	fin := user("fin", domain.RoleAdmin, "co")

	require.True(t, approval.CanUserApprove(expense, &mgr, allUsers))
	require.False(t, approval.CanUserApprove(expense, &fin, allUsers))

	expense.Approvals = append(expense.Approvals, vote("mgr", domain.DecisionApproved))
	assert.Equal(t, domain.StatusPending, approval.EvaluateApprovalRules(expense, allUsers))
	require.True(t, approval.CanUserApprove(expense, &fin, allUsers))

	expense.Approvals = append(expense.Approvals, vote("fin", domain.DecisionApproved))
	assert.Equal(t, domain.StatusApproved, approval.EvaluateApprovalRules(expense, allUsers))
}
