package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/expenseasy/expenseasy_backend/internal/core/ports/services"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
	"github.com/expenseasy/expenseasy_backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// policyHandler handles HTTP requests related to approval policies.
type policyHandler struct {
	policyService portssvc.PolicySvcFacade
}

func newPolicyHandler(ps portssvc.PolicySvcFacade) *policyHandler {
	return &policyHandler{policyService: ps}
}

// registerPolicyRoutes registers all approval-policy routes. All of them are
// admin-gated inside the service layer.
func registerPolicyRoutes(rg *gin.RouterGroup, policyService portssvc.PolicySvcFacade) {
	h := newPolicyHandler(policyService)

	policies := rg.Group("/approval-policies")
	{
		policies.POST("", h.createPolicy)
		policies.GET("", h.listPolicies)
		policies.GET("/:id", h.getPolicy)
		policies.PUT("/:id", h.updatePolicy)
		policies.DELETE("/:id", h.deletePolicy)
	}
}

// createPolicy godoc
// @Summary Create an approval policy
// @Description Creates a policy scoping approval routing to a company, user and/or category
// @Tags approval-policies
// @Accept  json
// @Produce  json
// @Param   policy body dto.CreatePolicyRequest true "Policy details"
// @Success 201 {object} dto.PolicyResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Not an admin of the company"
// @Security BearerAuth
// @Router /approval-policies [post]
func (h *policyHandler) createPolicy(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for create policy request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingErrorMessage(err)})
		return
	}

	creatorUserID, ok := mustUserID(c)
	if !ok {
		return
	}

	policy, err := h.policyService.CreatePolicy(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondError(c, err, "Failed to create policy")
		return
	}

	logger.Info("Policy created successfully", slog.String("policy_id", policy.PolicyID))
	c.JSON(http.StatusCreated, dto.ToPolicyResponse(policy))
}

// getPolicy godoc
// @Summary Get an approval policy by ID
// @Description Retrieves a policy with its ordered approver list
// @Tags approval-policies
// @Produce  json
// @Param   id path string true "Policy ID"
// @Success 200 {object} dto.PolicyResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Policy not found"
// @Security BearerAuth
// @Router /approval-policies/{id} [get]
func (h *policyHandler) getPolicy(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}

	policy, err := h.policyService.GetPolicyByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve policy")
		return
	}

	c.JSON(http.StatusOK, dto.ToPolicyResponse(policy))
}

// listPolicies godoc
// @Summary List approval policies
// @Description Retrieves policies filtered by company, user and/or category
// @Tags approval-policies
// @Produce  json
// @Param   companyId query string false "Company ID"
// @Param   userId query string false "User ID"
// @Param   category query string false "Expense category"
// @Success 200 {array} dto.PolicyResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /approval-policies [get]
func (h *policyHandler) listPolicies(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}

	var params dto.ListPoliciesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}

	policies, err := h.policyService.ListPolicies(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "Failed to list policies")
		return
	}

	c.JSON(http.StatusOK, dto.ToListPolicyResponse(policies))
}

// updatePolicy godoc
// @Summary Update an approval policy
// @Description Applies partial updates; rules already frozen onto expenses are unaffected
// @Tags approval-policies
// @Accept  json
// @Produce  json
// @Param   id path string true "Policy ID to update"
// @Param   policy body dto.UpdatePolicyRequest true "Policy fields to update"
// @Success 200 {object} dto.PolicyResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Not an admin of the company"
// @Failure 404 {object} ErrorResponse "Policy not found"
// @Security BearerAuth
// @Router /approval-policies/{id} [put]
func (h *policyHandler) updatePolicy(c *gin.Context) {
	var req dto.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingErrorMessage(err)})
		return
	}

	updaterUserID, ok := mustUserID(c)
	if !ok {
		return
	}

	policy, err := h.policyService.UpdatePolicy(c.Request.Context(), c.Param("id"), req, updaterUserID)
	if err != nil {
		respondError(c, err, "Failed to update policy")
		return
	}

	c.JSON(http.StatusOK, dto.ToPolicyResponse(policy))
}

// deletePolicy godoc
// @Summary Delete an approval policy
// @Description Removes a policy; expenses with rules derived from it keep their snapshot
// @Tags approval-policies
// @Produce  json
// @Param   id path string true "Policy ID to delete"
// @Success 204 "No Content"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Not an admin of the company"
// @Failure 404 {object} ErrorResponse "Policy not found"
// @Security BearerAuth
// @Router /approval-policies/{id} [delete]
func (h *policyHandler) deletePolicy(c *gin.Context) {
	deleterUserID, ok := mustUserID(c)
	if !ok {
		return
	}

	if err := h.policyService.DeletePolicy(c.Request.Context(), c.Param("id"), deleterUserID); err != nil {
		respondError(c, err, "Failed to delete policy")
		return
	}

	c.Status(http.StatusNoContent)
}
