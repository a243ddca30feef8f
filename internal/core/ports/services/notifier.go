package services

import "context"

// Notifier receives the set of initially-eligible approver IDs after an
// expense is created. Delivery (push, email) is an external collaborator's
// concern; implementations must not block on it.
type Notifier interface {
	NotifyExpenseSubmitted(ctx context.Context, expenseID string, approverIDs []string)
}
