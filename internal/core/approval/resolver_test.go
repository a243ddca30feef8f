package approval_test

import (
	"testing"

	"github.com/expenseasy/expenseasy_backend/internal/core/approval"
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userEntry(approverID string, order int, required bool) domain.ApprovalPolicyApprover {
	return domain.ApprovalPolicyApprover{
		ApproverID:   &approverID,
		ApproverType: domain.ApproverTypeUser,
		Required:     required,
		Order:        order,
	}
}

func managerEntry(order int, required bool) domain.ApprovalPolicyApprover {
	return domain.ApprovalPolicyApprover{
		ApproverType: domain.ApproverTypeManager,
		Required:     required,
		Order:        order,
	}
}

func employeeWithManager(managerID string) *domain.User {
	return &domain.User{
		UserID:    "emp",
		Role:      domain.RoleEmployee,
		CompanyID: "co",
		ManagerID: &managerID,
	}
}

func TestExpandPolicy(t *testing.T) {
	t.Run("manager approver is inserted as the first step", func(t *testing.T) {
		policy := &domain.ApprovalPolicy{
			IsManagerApprover: true,
			Approvers: []domain.ApprovalPolicyApprover{
				userEntry("u1", 0, true),
				userEntry("u2", 1, false),
			},
		}

		steps := approval.ExpandPolicy(policy, employeeWithManager("mgr"))
		require.Len(t, steps, 3)
		assert.Equal(t, "mgr", steps[0].ApproverID)
		assert.Equal(t, domain.ApproverTypeManager, steps[0].Type)
		assert.True(t, steps[0].Required)
		assert.Equal(t, "u1", steps[1].ApproverID)
		assert.Equal(t, "u2", steps[2].ApproverID)
	})

	t.Run("virtual manager entries resolve to the employee's manager", func(t *testing.T) {
		policy := &domain.ApprovalPolicy{
			Approvers: []domain.ApprovalPolicyApprover{
				userEntry("u1", 0, true),
				managerEntry(1, true),
			},
		}

		steps := approval.ExpandPolicy(policy, employeeWithManager("mgr"))
		require.Len(t, steps, 2)
		assert.Equal(t, "u1", steps[0].ApproverID)
		assert.Equal(t, "mgr", steps[1].ApproverID)
		assert.Equal(t, domain.ApproverTypeManager, steps[1].Type)
	})

	t.Run("manager steps are omitted when the employee has no manager", func(t *testing.T) {
		policy := &domain.ApprovalPolicy{
			IsManagerApprover: true,
			Approvers: []domain.ApprovalPolicyApprover{
				managerEntry(0, true),
				userEntry("u1", 1, true),
			},
		}
		employee := &domain.User{UserID: "emp", Role: domain.RoleEmployee, CompanyID: "co"}

		steps := approval.ExpandPolicy(policy, employee)
		require.Len(t, steps, 1)
		assert.Equal(t, "u1", steps[0].ApproverID)
	})

	t.Run("first occurrence of an approver wins", func(t *testing.T) {
		// The manager also appears as an explicit user entry later on; the
		// auto-included first step keeps its slot.
		policy := &domain.ApprovalPolicy{
			IsManagerApprover: true,
			Approvers: []domain.ApprovalPolicyApprover{
				userEntry("u1", 0, true),
				userEntry("mgr", 1, false),
			},
		}

		steps := approval.ExpandPolicy(policy, employeeWithManager("mgr"))
		require.Len(t, steps, 2)
		assert.Equal(t, "mgr", steps[0].ApproverID)
		assert.True(t, steps[0].Required)
		assert.Equal(t, "u1", steps[1].ApproverID)
	})

	t.Run("steps are renumbered contiguously from zero", func(t *testing.T) {
		policy := &domain.ApprovalPolicy{
			IsManagerApprover: true,
			Approvers: []domain.ApprovalPolicyApprover{
				userEntry("u1", 5, true),
				userEntry("u2", 10, true),
			},
		}

		steps := approval.ExpandPolicy(policy, employeeWithManager("mgr"))
		require.Len(t, steps, 3)
		for i, s := range steps {
			assert.Equal(t, i, s.Order)
		}
	})

	t.Run("empty policy yields no steps", func(t *testing.T) {
		steps := approval.ExpandPolicy(&domain.ApprovalPolicy{}, employeeWithManager("mgr"))
		assert.Empty(t, steps)
	})
}

func TestDeriveRule(t *testing.T) {
	t.Run("single user approver is a non-sequential specific rule", func(t *testing.T) {
		policy := &domain.ApprovalPolicy{}
		steps := []domain.ApprovalRuleApproverStep{
			{ApproverID: "u1", Order: 0, Required: true, Type: domain.ApproverTypeUser},
		}

		rule := approval.DeriveRule(policy, steps)
		assert.Equal(t, domain.RuleTypeSpecificApprover, rule.Type)
		assert.False(t, rule.Sequential)
		assert.Equal(t, []string{"u1"}, rule.RequiredApprovers)
		assert.Equal(t, steps, rule.ApproverSequence)
	})

	t.Run("multiple steps default to sequential", func(t *testing.T) {
		policy := &domain.ApprovalPolicy{}
		steps := []domain.ApprovalRuleApproverStep{
			{ApproverID: "u1", Order: 0, Required: true, Type: domain.ApproverTypeUser},
			{ApproverID: "u2", Order: 1, Required: false, Type: domain.ApproverTypeUser},
		}

		rule := approval.DeriveRule(policy, steps)
		assert.True(t, rule.Sequential)
		assert.Equal(t, []string{"u1"}, rule.RequiredApprovers)
	})

	t.Run("manager gated single step is sequential", func(t *testing.T) {
		policy := &domain.ApprovalPolicy{IsManagerApprover: true}
		steps := []domain.ApprovalRuleApproverStep{
			{ApproverID: "mgr", Order: 0, Required: true, Type: domain.ApproverTypeManager},
		}

		rule := approval.DeriveRule(policy, steps)
		assert.True(t, rule.Sequential)
	})

	t.Run("percentage only is a percentage rule", func(t *testing.T) {
		policy := &domain.ApprovalPolicy{MinApprovalPercentage: ptr(60)}

		rule := approval.DeriveRule(policy, nil)
		assert.Equal(t, domain.RuleTypePercentage, rule.Type)
		require.NotNil(t, rule.PercentageThreshold)
		assert.Equal(t, 60, *rule.PercentageThreshold)
		assert.Empty(t, rule.RequiredApprovers)
		assert.Empty(t, rule.ApproverSequence)
	})

	t.Run("percentage with steps is hybrid", func(t *testing.T) {
		policy := &domain.ApprovalPolicy{MinApprovalPercentage: ptr(60)}
		steps := []domain.ApprovalRuleApproverStep{
			{ApproverID: "u1", Order: 0, Required: true, Type: domain.ApproverTypeUser},
		}

		rule := approval.DeriveRule(policy, steps)
		assert.Equal(t, domain.RuleTypeHybrid, rule.Type)
	})

	t.Run("explicit sequential flag is honored", func(t *testing.T) {
		policy := &domain.ApprovalPolicy{Sequential: true}
		steps := []domain.ApprovalRuleApproverStep{
			{ApproverID: "u1", Order: 0, Required: true, Type: domain.ApproverTypeUser},
		}

		rule := approval.DeriveRule(policy, steps)
		assert.True(t, rule.Sequential)
	})

	t.Run("manager first carries through to the rule", func(t *testing.T) {
		policy := &domain.ApprovalPolicy{IsManagerApprover: true, ManagerFirst: true}
		steps := approval.ExpandPolicy(&domain.ApprovalPolicy{
			IsManagerApprover: true,
			Approvers:         []domain.ApprovalPolicyApprover{userEntry("u1", 0, true)},
		}, employeeWithManager("mgr"))

		rule := approval.DeriveRule(policy, steps)
		assert.True(t, rule.ManagerFirst)
		assert.Equal(t, []string{"mgr", "u1"}, rule.RequiredApprovers)
	})
}
