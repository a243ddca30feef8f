package pgsql

import (
	"context"
	"fmt"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	portsrepo "github.com/expenseasy/expenseasy_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PolicyRepository struct {
	db *pgxpool.Pool
}

func NewPolicyRepository(db *pgxpool.Pool) *PolicyRepository {
	return &PolicyRepository{db: db}
}

var _ portsrepo.PolicyRepositoryFacade = (*PolicyRepository)(nil)

const policyColumns = `policy_id, company_id, user_id, category, description,
		is_manager_approver, manager_first, sequential, min_approval_percentage,
		created_at, created_by, last_updated_at, last_updated_by`

func (r *PolicyRepository) SavePolicy(ctx context.Context, policy domain.ApprovalPolicy) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO approval_policies (policy_id, company_id, user_id, category, description,
            is_manager_approver, manager_first, sequential, min_approval_percentage,
            created_at, created_by, last_updated_at, last_updated_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
    `
	_, err = tx.Exec(ctx, query,
		policy.PolicyID,
		policy.CompanyID,
		policy.UserID,
		policy.Category,
		policy.Description,
		policy.IsManagerApprover,
		policy.ManagerFirst,
		policy.Sequential,
		policy.MinApprovalPercentage,
		policy.CreatedAt,
		policy.CreatedBy,
		policy.LastUpdatedAt,
		policy.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}

	if err := insertPolicyApprovers(ctx, tx, policy.PolicyID, policy.Approvers); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit policy save: %w", err)
	}
	return nil
}

func (r *PolicyRepository) FindPolicyByID(ctx context.Context, policyID string) (*domain.ApprovalPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM approval_policies WHERE policy_id = $1;`
	policy, err := r.scanPolicyRow(r.db.QueryRow(ctx, query, policyID))
	if err != nil {
		return nil, err
	}
	if err := r.loadApprovers(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// FindMatchingPolicy resolves the most specific policy for an employee and
// category in a single ordered query: user-scoped beats company-wide, then
// category-scoped beats catch-all.
func (r *PolicyRepository) FindMatchingPolicy(ctx context.Context, companyID, employeeID, category string) (*domain.ApprovalPolicy, error) {
	query := `SELECT ` + policyColumns + `
        FROM approval_policies
        WHERE company_id = $1
          AND (user_id = $2 OR user_id IS NULL)
          AND (category = $3 OR category IS NULL)
        ORDER BY (user_id IS NOT NULL) DESC, (category IS NOT NULL) DESC, created_at ASC
        LIMIT 1;`
	policy, err := r.scanPolicyRow(r.db.QueryRow(ctx, query, companyID, employeeID, category))
	if err != nil {
		return nil, err
	}
	if err := r.loadApprovers(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

func (r *PolicyRepository) ListPolicies(ctx context.Context, filter portsrepo.PolicyListFilter) ([]domain.ApprovalPolicy, error) {
	query := `SELECT ` + policyColumns + `
        FROM approval_policies
        WHERE ($1 = '' OR company_id = $1)
          AND ($2 = '' OR user_id = $2)
          AND ($3 = '' OR category = $3)
        ORDER BY created_at ASC;`
	rows, err := r.db.Query(ctx, query, filter.CompanyID, filter.UserID, filter.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	policies := []domain.ApprovalPolicy{}
	for rows.Next() {
		policy, err := r.scanPolicyRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		policies = append(policies, *policy)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating policy rows: %w", rows.Err())
	}

	for i := range policies {
		if err := r.loadApprovers(ctx, &policies[i]); err != nil {
			return nil, err
		}
	}
	return policies, nil
}

func (r *PolicyRepository) UpdatePolicy(ctx context.Context, policy domain.ApprovalPolicy, replaceApprovers bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        UPDATE approval_policies
        SET user_id = $1, category = $2, description = $3, is_manager_approver = $4,
            manager_first = $5, sequential = $6, min_approval_percentage = $7,
            last_updated_at = $8, last_updated_by = $9
        WHERE policy_id = $10;
    `
	cmdTag, err := tx.Exec(ctx, query,
		policy.UserID,
		policy.Category,
		policy.Description,
		policy.IsManagerApprover,
		policy.ManagerFirst,
		policy.Sequential,
		policy.MinApprovalPercentage,
		policy.LastUpdatedAt,
		policy.LastUpdatedBy,
		policy.PolicyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return mapNotFound(pgx.ErrNoRows, "policy")
	}

	if replaceApprovers {
		if _, err := tx.Exec(ctx, `DELETE FROM approval_policy_approvers WHERE policy_id = $1;`, policy.PolicyID); err != nil {
			return fmt.Errorf("failed to clear policy approvers: %w", err)
		}
		if err := insertPolicyApprovers(ctx, tx, policy.PolicyID, policy.Approvers); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit policy update: %w", err)
	}
	return nil
}

func (r *PolicyRepository) DeletePolicy(ctx context.Context, policyID string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM approval_policies WHERE policy_id = $1;`, policyID)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return mapNotFound(pgx.ErrNoRows, "policy")
	}
	return nil
}

func insertPolicyApprovers(ctx context.Context, tx pgx.Tx, policyID string, approvers []domain.ApprovalPolicyApprover) error {
	query := `
        INSERT INTO approval_policy_approvers (policy_id, position, approver_id, approver_type, required, "order")
        VALUES ($1, $2, $3, $4, $5, $6);
    `
	for i, a := range approvers {
		if _, err := tx.Exec(ctx, query, policyID, i, a.ApproverID, a.ApproverType, a.Required, a.Order); err != nil {
			return fmt.Errorf("failed to save policy approver: %w", err)
		}
	}
	return nil
}

// loadApprovers attaches the approver list ordered by (order, position), the
// order every caller of the policy port relies on.
func (r *PolicyRepository) loadApprovers(ctx context.Context, policy *domain.ApprovalPolicy) error {
	query := `
        SELECT approver_id, approver_type, required, "order"
        FROM approval_policy_approvers
        WHERE policy_id = $1
        ORDER BY "order" ASC, position ASC;
    `
	rows, err := r.db.Query(ctx, query, policy.PolicyID)
	if err != nil {
		return fmt.Errorf("failed to query policy approvers: %w", err)
	}
	defer rows.Close()

	approvers := []domain.ApprovalPolicyApprover{}
	for rows.Next() {
		var a domain.ApprovalPolicyApprover
		if err := rows.Scan(&a.ApproverID, &a.ApproverType, &a.Required, &a.Order); err != nil {
			return fmt.Errorf("failed to scan policy approver row: %w", err)
		}
		approvers = append(approvers, a)
	}
	if rows.Err() != nil {
		return fmt.Errorf("error iterating policy approver rows: %w", rows.Err())
	}
	policy.Approvers = approvers
	return nil
}

func (r *PolicyRepository) scanPolicyRow(row pgx.Row) (*domain.ApprovalPolicy, error) {
	var policy domain.ApprovalPolicy
	err := row.Scan(
		&policy.PolicyID,
		&policy.CompanyID,
		&policy.UserID,
		&policy.Category,
		&policy.Description,
		&policy.IsManagerApprover,
		&policy.ManagerFirst,
		&policy.Sequential,
		&policy.MinApprovalPercentage,
		&policy.CreatedAt,
		&policy.CreatedBy,
		&policy.LastUpdatedAt,
		&policy.LastUpdatedBy,
	)
	if err != nil {
		return nil, mapNotFound(err, "policy")
	}
	return &policy, nil
}
