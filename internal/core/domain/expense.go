package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus is the lifecycle state of an expense.
type ExpenseStatus string

const (
	StatusPending  ExpenseStatus = "pending"
	StatusApproved ExpenseStatus = "approved"
	StatusRejected ExpenseStatus = "rejected"
)

// Decision is a single approver's verdict on an expense.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Approval records one approver's vote on one expense.
// At most one Approval exists per (ExpenseID, ApproverID) pair at any time;
// a vote must be retracted before a replacement can be recorded.
type Approval struct {
	ApprovalID string    `json:"approvalID"`
	ExpenseID  string    `json:"expenseID"`
	ApproverID string    `json:"approverID"`
	Decision   Decision  `json:"decision"`
	Timestamp  time.Time `json:"timestamp"`
	Comments   *string   `json:"comments,omitempty"`
}

// Expense is an employee expense submitted for approval.
//
// Rule is the frozen snapshot attached at creation time; edits to the
// originating policy never retroactively change it. Status is recomputed by
// the approval engine after every approval insertion or removal; once
// approved or rejected the expense is terminal for voting, though retraction
// of a vote re-triggers evaluation and can return it to pending.
type Expense struct {
	ExpenseID   string          `json:"expenseID"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	Status      ExpenseStatus   `json:"status"`
	EmployeeID  string          `json:"employeeID"`
	Comments    *string         `json:"comments,omitempty"`
	ReceiptURL  *string         `json:"receiptURL,omitempty"`
	Rule        *ApprovalRule   `json:"approvalRules,omitempty"`
	Approvals   []Approval      `json:"approvals"` // ordered by Timestamp ascending
	AuditFields
}

// ApprovalByUser returns the recorded vote of the given approver, if any.
func (e *Expense) ApprovalByUser(approverID string) *Approval {
	for i := range e.Approvals {
		if e.Approvals[i].ApproverID == approverID {
			return &e.Approvals[i]
		}
	}
	return nil
}
