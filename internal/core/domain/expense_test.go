package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApprovalByUser(t *testing.T) {
	expense := Expense{
		ExpenseID: "exp-1",
		Approvals: []Approval{
			{ApprovalID: "ap-1", ApproverID: "mgr-1", Decision: DecisionApproved},
			{ApprovalID: "ap-2", ApproverID: "mgr-2", Decision: DecisionRejected},
		},
	}

	found := expense.ApprovalByUser("mgr-2")
	assert.NotNil(t, found)
	assert.Equal(t, "ap-2", found.ApprovalID)
	assert.Equal(t, DecisionRejected, found.Decision)

	assert.Nil(t, expense.ApprovalByUser("mgr-3"))
	assert.Nil(t, (&Expense{}).ApprovalByUser("mgr-1"))
}

func TestUserRoleCanApprove(t *testing.T) {
	assert.True(t, RoleAdmin.CanApprove())
	assert.True(t, RoleManager.CanApprove())
	assert.False(t, RoleEmployee.CanApprove())
	assert.False(t, UserRole("unknown").CanApprove())
}
