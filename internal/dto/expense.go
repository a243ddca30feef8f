package dto

import (
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/core/approval"
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ApprovalRuleStepDTO is one step of an explicit approver sequence.
type ApprovalRuleStepDTO struct {
	ApproverID string `json:"approverId" binding:"required"`
	Order      int    `json:"order"`
	Required   *bool  `json:"required"`
	Type       string `json:"type" binding:"omitempty,oneof=manager user"`
	Label      string `json:"label"`
}

// ApprovalRuleDTO lets a caller supply an explicit rule at expense creation,
// bypassing policy derivation.
type ApprovalRuleDTO struct {
	Type                domain.ApprovalRuleType `json:"type" binding:"required,oneof=percentage specific_approver hybrid"`
	PercentageThreshold *int                    `json:"percentageThreshold" binding:"omitempty,min=0,max=100"`
	RequiredApprovers   []string                `json:"requiredApprovers"`
	ApproverSequence    []ApprovalRuleStepDTO   `json:"approverSequence"`
	ManagerFirst        bool                    `json:"managerFirst"`
	Sequential          bool                    `json:"sequential"`
}

// CreateExpenseRequest defines the data needed to submit an expense.
// EmployeeID is optional: admins and managers may submit on behalf of an
// employee, everyone else submits for themselves.
type CreateExpenseRequest struct {
	Description   string           `json:"description" binding:"required"`
	Amount        decimal.Decimal  `json:"amount" binding:"required"`
	Currency      string           `json:"currency" binding:"required,uppercase,len=3"`
	Category      string           `json:"category" binding:"required"`
	Date          time.Time        `json:"date" binding:"required"`
	EmployeeID    string           `json:"employeeId"`
	Comments      *string          `json:"comments"`
	ReceiptURL    *string          `json:"receiptUrl"`
	ApprovalRules *ApprovalRuleDTO `json:"approvalRules"`
}

// RecordApprovalRequest is one approver's vote.
type RecordApprovalRequest struct {
	Decision domain.Decision `json:"decision" binding:"required,oneof=approved rejected"`
	Comments *string         `json:"comments"`
}

// ListExpensesParams defines query parameters for listing expenses.
type ListExpensesParams struct {
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"nextToken"`
}

// ApprovalResponse is the public representation of a recorded vote.
type ApprovalResponse struct {
	ApprovalID   string          `json:"id"`
	ExpenseID    string          `json:"expenseId"`
	ApproverID   string          `json:"approverId"`
	ApproverName string          `json:"approverName,omitempty"`
	Decision     domain.Decision `json:"decision"`
	Timestamp    time.Time       `json:"timestamp"`
	Comments     *string         `json:"comments,omitempty"`
}

// ExpenseResponse is the public representation of an expense with its votes.
type ExpenseResponse struct {
	ExpenseID   string               `json:"id"`
	Description string               `json:"description"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    string               `json:"currency"`
	Category    string               `json:"category"`
	Date        time.Time            `json:"date"`
	Status      domain.ExpenseStatus `json:"status"`
	EmployeeID  string               `json:"employeeId"`
	Comments    *string              `json:"comments,omitempty"`
	ReceiptURL  *string              `json:"receiptUrl,omitempty"`
	Rule        *domain.ApprovalRule `json:"approvalRules,omitempty"`
	Approvals   []ApprovalResponse   `json:"approvals"`
}

// ListExpensesResponse wraps a page of expenses.
type ListExpensesResponse struct {
	Expenses  []ExpenseResponse `json:"expenses"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ApprovalProgressResponse projects engine progress for UI display.
type ApprovalProgressResponse struct {
	Approved       int     `json:"approved"`
	Total          int     `json:"total"`
	Required       int     `json:"required"`
	NextApproverID *string `json:"nextApproverId,omitempty"`
}

// ToApprovalRule converts an explicit rule payload into its domain form.
func (r *ApprovalRuleDTO) ToApprovalRule() *domain.ApprovalRule {
	if r == nil {
		return nil
	}
	rule := &domain.ApprovalRule{
		Type:                r.Type,
		PercentageThreshold: r.PercentageThreshold,
		RequiredApprovers:   r.RequiredApprovers,
		ManagerFirst:        r.ManagerFirst,
		Sequential:          r.Sequential,
	}
	if len(r.ApproverSequence) > 0 {
		steps := make([]domain.ApprovalRuleApproverStep, len(r.ApproverSequence))
		for i, s := range r.ApproverSequence {
			required := true
			if s.Required != nil {
				required = *s.Required
			}
			steps[i] = domain.ApprovalRuleApproverStep{
				ApproverID: s.ApproverID,
				Order:      s.Order,
				Required:   required,
				Type:       domain.ApproverType(s.Type),
				Label:      s.Label,
			}
		}
		rule.ApproverSequence = steps
	}
	return rule
}

// ToExpenseResponse converts a domain expense to its wire form. approverNames
// maps approver IDs to display names and may be nil.
func ToExpenseResponse(expense *domain.Expense, approverNames map[string]string) ExpenseResponse {
	approvals := make([]ApprovalResponse, len(expense.Approvals))
	for i, a := range expense.Approvals {
		approvals[i] = ApprovalResponse{
			ApprovalID:   a.ApprovalID,
			ExpenseID:    a.ExpenseID,
			ApproverID:   a.ApproverID,
			ApproverName: approverNames[a.ApproverID],
			Decision:     a.Decision,
			Timestamp:    a.Timestamp,
			Comments:     a.Comments,
		}
	}
	return ExpenseResponse{
		ExpenseID:   expense.ExpenseID,
		Description: expense.Description,
		Amount:      expense.Amount,
		Currency:    expense.Currency,
		Category:    expense.Category,
		Date:        expense.Date,
		Status:      expense.Status,
		EmployeeID:  expense.EmployeeID,
		Comments:    expense.Comments,
		ReceiptURL:  expense.ReceiptURL,
		Rule:        expense.Rule,
		Approvals:   approvals,
	}
}

// ToApprovalProgressResponse converts engine progress to its wire form.
func ToApprovalProgressResponse(p approval.Progress) ApprovalProgressResponse {
	return ApprovalProgressResponse{
		Approved:       p.Approved,
		Total:          p.Total,
		Required:       p.Required,
		NextApproverID: p.NextApproverID,
	}
}
