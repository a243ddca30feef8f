package pgsql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/apperrors"
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	portsrepo "github.com/expenseasy/expenseasy_backend/internal/core/ports/repositories"
	"github.com/expenseasy/expenseasy_backend/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ExpenseRepository struct {
	db *pgxpool.Pool
}

func NewExpenseRepository(db *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

var _ portsrepo.ExpenseRepositoryFacade = (*ExpenseRepository)(nil)

const expenseColumns = `expense_id, description, amount, currency, category, date, status,
		employee_id, comments, receipt_url, approval_rules,
		created_at, created_by, last_updated_at, last_updated_by`

// SaveExpense persists the expense with its rule snapshot serialized to JSONB.
// The snapshot is written once here and never updated afterwards.
func (r *ExpenseRepository) SaveExpense(ctx context.Context, expense domain.Expense) error {
	ruleJSON, err := marshalRule(expense.Rule)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO expenses (expense_id, description, amount, currency, category, date, status,
            employee_id, comments, receipt_url, approval_rules,
            created_at, created_by, last_updated_at, last_updated_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
    `
	_, err = r.db.Exec(ctx, query,
		expense.ExpenseID,
		expense.Description,
		expense.Amount,
		expense.Currency,
		expense.Category,
		expense.Date,
		expense.Status,
		expense.EmployeeID,
		expense.Comments,
		expense.ReceiptURL,
		ruleJSON,
		expense.CreatedAt,
		expense.CreatedBy,
		expense.LastUpdatedAt,
		expense.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE expense_id = $1;`
	expense, err := r.scanExpenseRow(r.db.QueryRow(ctx, query, expenseID))
	if err != nil {
		return nil, err
	}
	if err := r.loadApprovals(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (r *ExpenseRepository) ListExpensesByCompany(ctx context.Context, companyID string, limit int, nextToken *string) ([]domain.Expense, *string, error) {
	query := `SELECT ` + expenseColumns + `
        FROM expenses e
        WHERE employee_id IN (SELECT user_id FROM users WHERE company_id = $1)
          AND ($2::timestamptz IS NULL OR (e.date, e.created_at) < ($2, $3))
        ORDER BY e.date DESC, e.created_at DESC
        LIMIT $4;`
	return r.listExpenses(ctx, query, companyID, limit, nextToken)
}

func (r *ExpenseRepository) ListExpensesByEmployee(ctx context.Context, employeeID string, limit int, nextToken *string) ([]domain.Expense, *string, error) {
	query := `SELECT ` + expenseColumns + `
        FROM expenses e
        WHERE employee_id = $1
          AND ($2::timestamptz IS NULL OR (e.date, e.created_at) < ($2, $3))
        ORDER BY e.date DESC, e.created_at DESC
        LIMIT $4;`
	return r.listExpenses(ctx, query, employeeID, limit, nextToken)
}

// SaveApproval appends a vote. The unique constraint on
// (expense_id, approver_id) is the authoritative duplicate guard.
func (r *ExpenseRepository) SaveApproval(ctx context.Context, approval domain.Approval) error {
	query := `
        INSERT INTO approvals (approval_id, expense_id, approver_id, decision, timestamp, comments)
        VALUES ($1, $2, $3, $4, $5, $6);
    `
	_, err := r.db.Exec(ctx, query,
		approval.ApprovalID,
		approval.ExpenseID,
		approval.ApproverID,
		approval.Decision,
		approval.Timestamp,
		approval.Comments,
	)
	if err != nil {
		if isUniqueViolation(err, "approvals_expense_id_approver_id_key") {
			return fmt.Errorf("approver already voted on this expense: %w", apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save approval: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) DeleteApprovalsByApprover(ctx context.Context, expenseID, approverID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM approvals WHERE expense_id = $1 AND approver_id = $2;`,
		expenseID, approverID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete approvals: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

func (r *ExpenseRepository) UpdateExpenseStatus(ctx context.Context, expenseID string, status domain.ExpenseStatus, updatedBy string, updatedAt time.Time) error {
	query := `
        UPDATE expenses
        SET status = $1, last_updated_at = $2, last_updated_by = $3
        WHERE expense_id = $4;
    `
	cmdTag, err := r.db.Exec(ctx, query, status, updatedAt, updatedBy, expenseID)
	if err != nil {
		return fmt.Errorf("failed to update expense status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return mapNotFound(pgx.ErrNoRows, "expense")
	}
	return nil
}

// listExpenses runs a keyset-paginated listing query. The token encodes the
// (date, created_at) pair of the last row of the previous page.
func (r *ExpenseRepository) listExpenses(ctx context.Context, query, scopeID string, limit int, nextToken *string) ([]domain.Expense, *string, error) {
	if limit <= 0 {
		limit = 20
	}

	var afterDate, afterCreated *time.Time
	if nextToken != nil && *nextToken != "" {
		date, created, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		afterDate, afterCreated = &date, &created
	}

	// Fetch one extra row to know whether another page exists.
	rows, err := r.db.Query(ctx, query, scopeID, afterDate, afterCreated, limit+1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []domain.Expense{}
	for rows.Next() {
		expense, err := r.scanExpenseRow(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan expense row: %w", err)
		}
		expenses = append(expenses, *expense)
	}
	if rows.Err() != nil {
		return nil, nil, fmt.Errorf("error iterating expense rows: %w", rows.Err())
	}

	var token *string
	if len(expenses) > limit {
		expenses = expenses[:limit]
		last := expenses[len(expenses)-1]
		encoded := pagination.EncodeToken(last.Date, last.CreatedAt)
		token = &encoded
	}

	for i := range expenses {
		if err := r.loadApprovals(ctx, &expenses[i]); err != nil {
			return nil, nil, err
		}
	}
	return expenses, token, nil
}

func (r *ExpenseRepository) loadApprovals(ctx context.Context, expense *domain.Expense) error {
	query := `
        SELECT approval_id, expense_id, approver_id, decision, timestamp, comments
        FROM approvals
        WHERE expense_id = $1
        ORDER BY timestamp ASC;
    `
	rows, err := r.db.Query(ctx, query, expense.ExpenseID)
	if err != nil {
		return fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	approvals := []domain.Approval{}
	for rows.Next() {
		var a domain.Approval
		if err := rows.Scan(&a.ApprovalID, &a.ExpenseID, &a.ApproverID, &a.Decision, &a.Timestamp, &a.Comments); err != nil {
			return fmt.Errorf("failed to scan approval row: %w", err)
		}
		approvals = append(approvals, a)
	}
	if rows.Err() != nil {
		return fmt.Errorf("error iterating approval rows: %w", rows.Err())
	}
	expense.Approvals = approvals
	return nil
}

func (r *ExpenseRepository) scanExpenseRow(row pgx.Row) (*domain.Expense, error) {
	var expense domain.Expense
	var ruleJSON []byte
	err := row.Scan(
		&expense.ExpenseID,
		&expense.Description,
		&expense.Amount,
		&expense.Currency,
		&expense.Category,
		&expense.Date,
		&expense.Status,
		&expense.EmployeeID,
		&expense.Comments,
		&expense.ReceiptURL,
		&ruleJSON,
		&expense.CreatedAt,
		&expense.CreatedBy,
		&expense.LastUpdatedAt,
		&expense.LastUpdatedBy,
	)
	if err != nil {
		return nil, mapNotFound(err, "expense")
	}
	if len(ruleJSON) > 0 {
		var rule domain.ApprovalRule
		if err := json.Unmarshal(ruleJSON, &rule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal approval rule snapshot: %w", err)
		}
		expense.Rule = &rule
	}
	return &expense, nil
}

func marshalRule(rule *domain.ApprovalRule) ([]byte, error) {
	if rule == nil {
		return nil, nil
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal approval rule snapshot: %w", err)
	}
	return data, nil
}
