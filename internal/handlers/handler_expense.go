package handlers

import (
	"log/slog"
	"net/http"

	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	portssvc "github.com/expenseasy/expenseasy_backend/internal/core/ports/services"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
	"github.com/expenseasy/expenseasy_backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// expenseHandler handles HTTP requests related to expenses and their
// approval lifecycle.
type expenseHandler struct {
	expenseService portssvc.ExpenseSvcFacade
	userService    portssvc.UserReaderSvc
}

func newExpenseHandler(es portssvc.ExpenseSvcFacade, us portssvc.UserReaderSvc) *expenseHandler {
	return &expenseHandler{
		expenseService: es,
		userService:    us,
	}
}

// RegisterExpenseRoutes registers all expense-related routes.
func RegisterExpenseRoutes(rg *gin.RouterGroup, expenseService portssvc.ExpenseSvcFacade, userService portssvc.UserReaderSvc) {
	h := newExpenseHandler(expenseService, userService)

	expenses := rg.Group("/expenses")
	{
		expenses.POST("", h.createExpense)
		expenses.GET("", h.listCompanyExpenses)
		expenses.GET("/mine", h.listOwnExpenses)
		expenses.GET("/:id", h.getExpense)

		expenses.POST("/:id/approvals", h.recordApproval)
		expenses.DELETE("/:id/approvals", h.retractApproval)
		expenses.GET("/:id/progress", h.getApprovalProgress)
		expenses.GET("/:id/eligible-approvers", h.getEligibleApprovers)
	}
}

// createExpense godoc
// @Summary Submit an expense
// @Description Creates an expense and freezes its approval rule, derived from the matching policy unless supplied explicitly
// @Tags expenses
// @Accept  json
// @Produce  json
// @Param   expense body dto.CreateExpenseRequest true "Expense details"
// @Success 201 {object} dto.ExpenseResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Submitting for another employee without permission"
// @Security BearerAuth
// @Router /expenses [post]
func (h *expenseHandler) createExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for create expense request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingErrorMessage(err)})
		return
	}

	creatorUserID, ok := mustUserID(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondError(c, err, "Failed to create expense")
		return
	}

	logger.Info("Expense created successfully", slog.String("expense_id", expense.ExpenseID))
	c.JSON(http.StatusCreated, dto.ToExpenseResponse(expense, h.approverNames(c, expense)))
}

// getExpense godoc
// @Summary Get an expense by ID
// @Description Retrieves an expense with its rule snapshot and recorded votes
// @Tags expenses
// @Produce  json
// @Param   id path string true "Expense ID"
// @Success 200 {object} dto.ExpenseResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Expense not found"
// @Security BearerAuth
// @Router /expenses/{id} [get]
func (h *expenseHandler) getExpense(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}

	expense, err := h.expenseService.GetExpenseByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve expense")
		return
	}

	c.JSON(http.StatusOK, dto.ToExpenseResponse(expense, h.approverNames(c, expense)))
}

// listCompanyExpenses godoc
// @Summary List the caller's company expenses
// @Description Retrieves a page of expenses across the caller's company, newest first
// @Tags expenses
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListExpensesResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /expenses [get]
func (h *expenseHandler) listCompanyExpenses(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var params dto.ListExpensesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}

	caller, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to list expenses")
		return
	}

	expenses, nextToken, err := h.expenseService.ListCompanyExpenses(c.Request.Context(), caller.CompanyID, params)
	if err != nil {
		respondError(c, err, "Failed to list expenses")
		return
	}

	c.JSON(http.StatusOK, h.toListResponse(c, expenses, nextToken))
}

// listOwnExpenses godoc
// @Summary List the caller's own expenses
// @Description Retrieves a page of the caller's submitted expenses, newest first
// @Tags expenses
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListExpensesResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /expenses/mine [get]
func (h *expenseHandler) listOwnExpenses(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var params dto.ListExpensesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}

	expenses, nextToken, err := h.expenseService.ListEmployeeExpenses(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err, "Failed to list expenses")
		return
	}

	c.JSON(http.StatusOK, h.toListResponse(c, expenses, nextToken))
}

// recordApproval godoc
// @Summary Vote on an expense
// @Description Records the caller's approval or rejection and re-evaluates the expense status
// @Tags expenses
// @Accept  json
// @Produce  json
// @Param   id path string true "Expense ID"
// @Param   vote body dto.RecordApprovalRequest true "Decision"
// @Success 200 {object} dto.ExpenseResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Not authorized to approve this expense"
// @Failure 404 {object} ErrorResponse "Expense not found"
// @Failure 409 {object} ErrorResponse "Already voted"
// @Security BearerAuth
// @Router /expenses/{id}/approvals [post]
func (h *expenseHandler) recordApproval(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecordApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingErrorMessage(err)})
		return
	}

	approverID, ok := mustUserID(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.RecordApproval(c.Request.Context(), c.Param("id"), approverID, req)
	if err != nil {
		respondError(c, err, "Failed to record approval")
		return
	}

	logger.Info("Approval recorded",
		slog.String("expense_id", expense.ExpenseID),
		slog.String("decision", string(req.Decision)),
		slog.String("status", string(expense.Status)),
	)
	c.JSON(http.StatusOK, dto.ToExpenseResponse(expense, h.approverNames(c, expense)))
}

// retractApproval godoc
// @Summary Retract a vote
// @Description Removes the caller's vote (or, for admins, another approver's via ?approverId=) and re-evaluates the status
// @Tags expenses
// @Produce  json
// @Param   id path string true "Expense ID"
// @Param   approverId query string false "Approver whose vote to retract (company admins only)"
// @Success 200 {object} dto.ExpenseResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Not the approver or an admin of the expense's company"
// @Failure 404 {object} ErrorResponse "No vote to retract"
// @Security BearerAuth
// @Router /expenses/{id}/approvals [delete]
func (h *expenseHandler) retractApproval(c *gin.Context) {
	requestingUserID, ok := mustUserID(c)
	if !ok {
		return
	}

	approverID := c.Query("approverId")
	if approverID == "" {
		approverID = requestingUserID
	}

	expense, err := h.expenseService.RetractApproval(c.Request.Context(), c.Param("id"), approverID, requestingUserID)
	if err != nil {
		respondError(c, err, "Failed to retract approval")
		return
	}

	c.JSON(http.StatusOK, dto.ToExpenseResponse(expense, h.approverNames(c, expense)))
}

// getApprovalProgress godoc
// @Summary Get approval progress for an expense
// @Description Projects how many approvals are recorded against how many are required
// @Tags expenses
// @Produce  json
// @Param   id path string true "Expense ID"
// @Success 200 {object} dto.ApprovalProgressResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Expense not found"
// @Security BearerAuth
// @Router /expenses/{id}/progress [get]
func (h *expenseHandler) getApprovalProgress(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}

	progress, err := h.expenseService.GetApprovalProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to compute approval progress")
		return
	}

	c.JSON(http.StatusOK, dto.ToApprovalProgressResponse(progress))
}

// getEligibleApprovers godoc
// @Summary List who may vote on an expense
// @Description Returns the users permitted to vote under the expense's frozen rule
// @Tags expenses
// @Produce  json
// @Param   id path string true "Expense ID"
// @Success 200 {object} dto.ListUsersResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Expense not found"
// @Security BearerAuth
// @Router /expenses/{id}/eligible-approvers [get]
func (h *expenseHandler) getEligibleApprovers(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}

	approvers, err := h.expenseService.GetEligibleApprovers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to list eligible approvers")
		return
	}

	c.JSON(http.StatusOK, dto.ToListUsersResponse(approvers))
}

// approverNames resolves display names for every approver on the expense.
// Lookup failures just leave the name blank.
func (h *expenseHandler) approverNames(c *gin.Context, expense *domain.Expense) map[string]string {
	if len(expense.Approvals) == 0 {
		return nil
	}
	names := make(map[string]string, len(expense.Approvals))
	for _, a := range expense.Approvals {
		if _, ok := names[a.ApproverID]; ok {
			continue
		}
		if user, err := h.userService.GetUserByID(c.Request.Context(), a.ApproverID); err == nil {
			names[a.ApproverID] = user.Name
		}
	}
	return names
}

func (h *expenseHandler) toListResponse(c *gin.Context, expenses []domain.Expense, nextToken *string) dto.ListExpensesResponse {
	responses := make([]dto.ExpenseResponse, len(expenses))
	for i := range expenses {
		responses[i] = dto.ToExpenseResponse(&expenses[i], h.approverNames(c, &expenses[i]))
	}
	return dto.ListExpensesResponse{Expenses: responses, NextToken: nextToken}
}
