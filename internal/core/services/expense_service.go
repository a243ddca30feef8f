package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/apperrors"
	"github.com/expenseasy/expenseasy_backend/internal/core/approval"
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	portsrepo "github.com/expenseasy/expenseasy_backend/internal/core/ports/repositories"
	portssvc "github.com/expenseasy/expenseasy_backend/internal/core/ports/services"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
	"github.com/google/uuid"
)

// expenseService implements the ExpenseSvcFacade interface. All approval
// mutations on one expense are serialized through a keyed mutex; the database
// unique constraint on (expense_id, approver_id) remains the authoritative
// duplicate guard should two instances race.
type expenseService struct {
	BaseService
	expenseRepo portsrepo.ExpenseRepositoryFacade
	userRepo    portsrepo.UserReader
	resolver    portssvc.PolicyResolverSvc
	notifier    portssvc.Notifier
	locks       keyedMutex
}

// NewExpenseService creates a new expense service. notifier may be nil.
func NewExpenseService(
	expenseRepo portsrepo.ExpenseRepositoryFacade,
	userRepo portsrepo.UserReader,
	resolver portssvc.PolicyResolverSvc,
	notifier portssvc.Notifier,
) portssvc.ExpenseSvcFacade {
	return &expenseService{
		expenseRepo: expenseRepo,
		userRepo:    userRepo,
		resolver:    resolver,
		notifier:    notifier,
	}
}

var _ portssvc.ExpenseSvcFacade = (*expenseService)(nil)

// CreateExpense submits an expense, resolving and freezing its approval rule.
func (s *expenseService) CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, creatorUserID string) (*domain.Expense, error) {
	creator, err := s.userRepo.FindUserByID(ctx, creatorUserID)
	if err != nil {
		return nil, err
	}

	employee := creator
	if req.EmployeeID != "" && req.EmployeeID != creatorUserID {
		if !creator.Role.CanApprove() {
			return nil, apperrors.NewForbiddenError("cannot submit an expense for another employee")
		}
		employee, err = s.userRepo.FindUserByID(ctx, req.EmployeeID)
		if err != nil {
			return nil, err
		}
		if employee.CompanyID != creator.CompanyID {
			return nil, apperrors.NewForbiddenError("employee belongs to another company")
		}
	}

	rule := req.ApprovalRules.ToApprovalRule()
	if rule == nil {
		policy, err := s.resolver.ResolvePolicy(ctx, employee.CompanyID, employee.UserID, req.Category)
		if err != nil {
			return nil, err
		}
		if policy != nil {
			steps := approval.ExpandPolicy(policy, employee)
			rule = approval.DeriveRule(policy, steps)
		}
	}

	now := time.Now()
	expense := domain.Expense{
		ExpenseID:   uuid.NewString(),
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    req.Category,
		Date:        req.Date,
		Status:      domain.StatusPending,
		EmployeeID:  employee.UserID,
		Comments:    req.Comments,
		ReceiptURL:  req.ReceiptURL,
		Rule:        rule,
		Approvals:   []domain.Approval{},
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.expenseRepo.SaveExpense(ctx, expense); err != nil {
		s.LogError(ctx, err, "Failed to save expense", slog.String("employee_id", employee.UserID))
		return nil, err
	}

	s.LogInfo(ctx, "Expense created",
		slog.String("expense_id", expense.ExpenseID),
		slog.String("employee_id", employee.UserID),
		slog.Bool("has_rule", rule != nil),
	)

	if s.notifier != nil {
		allUsers, err := s.userRepo.ListUsersByCompany(ctx, employee.CompanyID)
		if err != nil {
			s.LogError(ctx, err, "Failed to load company users for notification", slog.String("expense_id", expense.ExpenseID))
		} else if ids := approval.InitialApprovers(&expense, employee, allUsers); len(ids) > 0 {
			s.notifier.NotifyExpenseSubmitted(ctx, expense.ExpenseID, ids)
		}
	}

	return &expense, nil
}

// GetExpenseByID retrieves an expense with its approvals.
func (s *expenseService) GetExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	return s.expenseRepo.FindExpenseByID(ctx, expenseID)
}

// ListCompanyExpenses returns a page of a company's expenses.
func (s *expenseService) ListCompanyExpenses(ctx context.Context, companyID string, params dto.ListExpensesParams) ([]domain.Expense, *string, error) {
	return s.expenseRepo.ListExpensesByCompany(ctx, companyID, normalizeLimit(params.Limit), params.NextToken)
}

// ListEmployeeExpenses returns a page of one employee's expenses.
func (s *expenseService) ListEmployeeExpenses(ctx context.Context, employeeID string, params dto.ListExpensesParams) ([]domain.Expense, *string, error) {
	return s.expenseRepo.ListExpensesByEmployee(ctx, employeeID, normalizeLimit(params.Limit), params.NextToken)
}

// RecordApproval appends one vote and re-evaluates the expense status.
func (s *expenseService) RecordApproval(ctx context.Context, expenseID, approverID string, req dto.RecordApprovalRequest) (*domain.Expense, error) {
	unlock := s.locks.lock(expenseID)
	defer unlock()

	expense, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	approver, err := s.userRepo.FindUserByID(ctx, approverID)
	if err != nil {
		return nil, err
	}

	if !approver.Role.CanApprove() {
		return nil, apperrors.NewForbiddenError("only managers and admins may approve expenses")
	}
	if expense.EmployeeID == approverID {
		return nil, apperrors.NewForbiddenError("cannot approve your own expense")
	}
	if expense.ApprovalByUser(approverID) != nil {
		return nil, apperrors.NewConflictError("already voted on this expense")
	}

	employee, err := s.userRepo.FindUserByID(ctx, expense.EmployeeID)
	if err != nil {
		return nil, err
	}
	allUsers, err := s.userRepo.ListUsersByCompany(ctx, employee.CompanyID)
	if err != nil {
		return nil, err
	}

	if !approval.CanUserApprove(expense, approver, allUsers) {
		return nil, apperrors.NewForbiddenError("not authorized to approve this expense at this time")
	}

	vote := domain.Approval{
		ApprovalID: uuid.NewString(),
		ExpenseID:  expenseID,
		ApproverID: approverID,
		Decision:   req.Decision,
		Timestamp:  time.Now(),
		Comments:   req.Comments,
	}
	if err := s.expenseRepo.SaveApproval(ctx, vote); err != nil {
		return nil, err
	}
	expense.Approvals = append(expense.Approvals, vote)

	if err := s.reevaluate(ctx, expense, allUsers, approverID); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Approval recorded",
		slog.String("expense_id", expenseID),
		slog.String("approver_id", approverID),
		slog.String("decision", string(req.Decision)),
		slog.String("status", string(expense.Status)),
	)
	return expense, nil
}

// RetractApproval removes the approver's vote and re-evaluates the status.
// A vote on an already-approved or rejected expense may be retracted; the
// re-evaluation can move the expense back to pending.
func (s *expenseService) RetractApproval(ctx context.Context, expenseID, approverID, requestingUserID string) (*domain.Expense, error) {
	unlock := s.locks.lock(expenseID)
	defer unlock()

	expense, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	employee, err := s.userRepo.FindUserByID(ctx, expense.EmployeeID)
	if err != nil {
		return nil, err
	}

	if approverID != requestingUserID {
		requester, err := s.userRepo.FindUserByID(ctx, requestingUserID)
		if err != nil {
			return nil, err
		}
		if requester.Role != domain.RoleAdmin || requester.CompanyID != employee.CompanyID {
			return nil, apperrors.NewForbiddenError("only the approver or an admin of the same company may retract a vote")
		}
	}

	deleted, err := s.expenseRepo.DeleteApprovalsByApprover(ctx, expenseID, approverID)
	if err != nil {
		return nil, err
	}
	if deleted == 0 {
		return nil, apperrors.NewNotFoundError("no vote by this approver on this expense")
	}

	remaining := expense.Approvals[:0:0]
	for _, a := range expense.Approvals {
		if a.ApproverID != approverID {
			remaining = append(remaining, a)
		}
	}
	expense.Approvals = remaining

	allUsers, err := s.userRepo.ListUsersByCompany(ctx, employee.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := s.reevaluate(ctx, expense, allUsers, requestingUserID); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Approval retracted",
		slog.String("expense_id", expenseID),
		slog.String("approver_id", approverID),
		slog.String("status", string(expense.Status)),
	)
	return expense, nil
}

// GetApprovalProgress projects engine progress for UI display.
func (s *expenseService) GetApprovalProgress(ctx context.Context, expenseID string) (approval.Progress, error) {
	expense, allUsers, err := s.expenseWithCompanyUsers(ctx, expenseID)
	if err != nil {
		return approval.Progress{}, err
	}
	return approval.GetApprovalProgress(expense, allUsers), nil
}

// GetEligibleApprovers returns the users currently permitted to vote.
func (s *expenseService) GetEligibleApprovers(ctx context.Context, expenseID string) ([]domain.User, error) {
	expense, allUsers, err := s.expenseWithCompanyUsers(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	return approval.GetEligibleApprovers(expense, allUsers), nil
}

// reevaluate recomputes the status and persists it when it changed.
func (s *expenseService) reevaluate(ctx context.Context, expense *domain.Expense, allUsers []domain.User, updatedBy string) error {
	newStatus := approval.EvaluateApprovalRules(expense, allUsers)
	if newStatus == expense.Status {
		return nil
	}
	now := time.Now()
	if err := s.expenseRepo.UpdateExpenseStatus(ctx, expense.ExpenseID, newStatus, updatedBy, now); err != nil {
		s.LogError(ctx, err, "Failed to update expense status", slog.String("expense_id", expense.ExpenseID))
		return err
	}
	expense.Status = newStatus
	expense.LastUpdatedAt = now
	expense.LastUpdatedBy = updatedBy
	return nil
}

func (s *expenseService) expenseWithCompanyUsers(ctx context.Context, expenseID string) (*domain.Expense, []domain.User, error) {
	expense, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, nil, err
	}
	employee, err := s.userRepo.FindUserByID(ctx, expense.EmployeeID)
	if err != nil {
		return nil, nil, err
	}
	allUsers, err := s.userRepo.ListUsersByCompany(ctx, employee.CompanyID)
	if err != nil {
		return nil, nil, err
	}
	return expense, allUsers, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// keyedMutex hands out one mutex per key, releasing the entry once the last
// holder unlocks so the map does not grow with every expense ever touched.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedMutexEntry
}

type keyedMutexEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*keyedMutexEntry)
	}
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedMutexEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
