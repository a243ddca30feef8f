// Package notify contains Notifier implementations.
package notify

import (
	"context"
	"log/slog"

	"github.com/expenseasy/expenseasy_backend/internal/middleware"
)

// LogNotifier records submission notifications to the structured log. It
// stands in for a real delivery channel (email, push) and never blocks.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyExpenseSubmitted(ctx context.Context, expenseID string, approverIDs []string) {
	logger := middleware.GetLoggerFromCtx(ctx)
	logger.InfoContext(ctx, "Expense submitted, approvers notified",
		slog.String("expense_id", expenseID),
		slog.Any("approver_ids", approverIDs),
	)
}
