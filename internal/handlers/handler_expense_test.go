package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/expenseasy/expenseasy_backend/internal/apperrors"
	"github.com/expenseasy/expenseasy_backend/internal/core/approval"
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
	portssvc "github.com/expenseasy/expenseasy_backend/internal/core/ports/services"
	"github.com/expenseasy/expenseasy_backend/internal/dto"
	"github.com/expenseasy/expenseasy_backend/internal/handlers"
	"github.com/expenseasy/expenseasy_backend/internal/middleware"
	"github.com/expenseasy/expenseasy_backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock ExpenseService ---
type MockExpenseService struct {
	mock.Mock
}

func (m *MockExpenseService) CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, creatorUserID string) (*domain.Expense, error) {
	args := m.Called(ctx, req, creatorUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

func (m *MockExpenseService) GetExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

func (m *MockExpenseService) ListCompanyExpenses(ctx context.Context, companyID string, params dto.ListExpensesParams) ([]domain.Expense, *string, error) {
	args := m.Called(ctx, companyID, params)
	expenses, _ := args.Get(0).([]domain.Expense)
	token, _ := args.Get(1).(*string)
	return expenses, token, args.Error(2)
}

func (m *MockExpenseService) ListEmployeeExpenses(ctx context.Context, employeeID string, params dto.ListExpensesParams) ([]domain.Expense, *string, error) {
	args := m.Called(ctx, employeeID, params)
	expenses, _ := args.Get(0).([]domain.Expense)
	token, _ := args.Get(1).(*string)
	return expenses, token, args.Error(2)
}

func (m *MockExpenseService) RecordApproval(ctx context.Context, expenseID, approverID string, req dto.RecordApprovalRequest) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID, approverID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

func (m *MockExpenseService) RetractApproval(ctx context.Context, expenseID, approverID, requestingUserID string) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID, approverID, requestingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

func (m *MockExpenseService) GetApprovalProgress(ctx context.Context, expenseID string) (approval.Progress, error) {
	args := m.Called(ctx, expenseID)
	return args.Get(0).(approval.Progress), args.Error(1)
}

func (m *MockExpenseService) GetEligibleApprovers(ctx context.Context, expenseID string) ([]domain.User, error) {
	args := m.Called(ctx, expenseID)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Error(1)
}

var _ portssvc.ExpenseSvcFacade = (*MockExpenseService)(nil)

// --- Mock UserReaderService ---
type MockUserReaderService struct {
	mock.Mock
}

func (m *MockUserReaderService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserReaderService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserReaderService) ListCompanyUsers(ctx context.Context, companyID string) ([]domain.User, error) {
	args := m.Called(ctx, companyID)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Error(1)
}

var _ portssvc.UserReaderSvc = (*MockUserReaderService)(nil)

// --- Test Suite ---
type ExpenseHandlerTestSuite struct {
	suite.Suite
	router             *gin.Engine
	mockExpenseService *MockExpenseService
	mockUserService    *MockUserReaderService
	jwtSecret          string
}

func (suite *ExpenseHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"

	suite.router.Use(middleware.AuthMiddleware(suite.jwtSecret))

	suite.mockExpenseService = new(MockExpenseService)
	suite.mockUserService = new(MockUserReaderService)

	v1 := suite.router.Group("/api/v1")
	handlers.RegisterExpenseRoutes(v1, suite.mockExpenseService, suite.mockUserService)
}

func TestExpenseHandler(t *testing.T) {
	suite.Run(t, new(ExpenseHandlerTestSuite))
}

func (suite *ExpenseHandlerTestSuite) generateTestToken(userID string) string {
	token, err := utils.GenerateJWT(userID, suite.jwtSecret, time.Hour, "expenseasy-test")
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return token
}

func (suite *ExpenseHandlerTestSuite) authedRequest(method, url string, body string, userID string) *http.Request {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, _ := http.NewRequest(method, url, reader)
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(userID))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (suite *ExpenseHandlerTestSuite) TestRecordApproval_Success() {
	expenseID := uuid.NewString()
	approverID := uuid.NewString()

	expense := &domain.Expense{
		ExpenseID:  expenseID,
		Status:     domain.StatusApproved,
		EmployeeID: uuid.NewString(),
		Amount:     decimal.NewFromInt(120),
		Currency:   "USD",
		Approvals: []domain.Approval{
			{ApprovalID: uuid.NewString(), ExpenseID: expenseID, ApproverID: approverID, Decision: domain.DecisionApproved, Timestamp: time.Now()},
		},
	}

	suite.mockExpenseService.On("RecordApproval",
		mock.Anything,
		expenseID,
		approverID,
		mock.MatchedBy(func(r dto.RecordApprovalRequest) bool {
			return r.Decision == domain.DecisionApproved
		}),
	).Return(expense, nil).Once()
	suite.mockUserService.On("GetUserByID", mock.Anything, approverID).
		Return(&domain.User{UserID: approverID, Name: "Approver"}, nil).Once()

	req := suite.authedRequest(http.MethodPost, "/api/v1/expenses/"+expenseID+"/approvals", `{"decision":"approved"}`, approverID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var body dto.ExpenseResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Equal(expenseID, body.ExpenseID)
	suite.Equal(domain.StatusApproved, body.Status)
	suite.Require().Len(body.Approvals, 1)
	suite.Equal("Approver", body.Approvals[0].ApproverName)
	suite.mockExpenseService.AssertExpectations(suite.T())
}

func (suite *ExpenseHandlerTestSuite) TestRecordApproval_DuplicateVoteReturnsConflict() {
	expenseID := uuid.NewString()
	approverID := uuid.NewString()

	suite.mockExpenseService.On("RecordApproval", mock.Anything, expenseID, approverID, mock.Anything).
		Return(nil, apperrors.NewConflictError("already voted on this expense")).Once()

	req := suite.authedRequest(http.MethodPost, "/api/v1/expenses/"+expenseID+"/approvals", `{"decision":"approved"}`, approverID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusConflict, w.Code)

	var body handlers.ErrorResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Equal("already voted on this expense", body.Error)
}

func (suite *ExpenseHandlerTestSuite) TestRecordApproval_InvalidDecisionRejected() {
	expenseID := uuid.NewString()
	approverID := uuid.NewString()

	req := suite.authedRequest(http.MethodPost, "/api/v1/expenses/"+expenseID+"/approvals", `{"decision":"maybe"}`, approverID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockExpenseService.AssertNotCalled(suite.T(), "RecordApproval", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ExpenseHandlerTestSuite) TestRecordApproval_MissingTokenUnauthorized() {
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/expenses/some-id/approvals", strings.NewReader(`{"decision":"approved"}`))
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *ExpenseHandlerTestSuite) TestRetractApproval_DefaultsToCaller() {
	expenseID := uuid.NewString()
	callerID := uuid.NewString()

	expense := &domain.Expense{
		ExpenseID:  expenseID,
		Status:     domain.StatusPending,
		EmployeeID: uuid.NewString(),
		Amount:     decimal.NewFromInt(50),
		Currency:   "USD",
		Approvals:  []domain.Approval{},
	}

	suite.mockExpenseService.On("RetractApproval", mock.Anything, expenseID, callerID, callerID).
		Return(expense, nil).Once()

	req := suite.authedRequest(http.MethodDelete, "/api/v1/expenses/"+expenseID+"/approvals", "", callerID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var body dto.ExpenseResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Equal(domain.StatusPending, body.Status)
	suite.mockExpenseService.AssertExpectations(suite.T())
}

func (suite *ExpenseHandlerTestSuite) TestRetractApproval_AdminTargetsAnotherApprover() {
	expenseID := uuid.NewString()
	adminID := uuid.NewString()
	approverID := uuid.NewString()

	expense := &domain.Expense{
		ExpenseID:  expenseID,
		Status:     domain.StatusPending,
		EmployeeID: uuid.NewString(),
		Amount:     decimal.NewFromInt(50),
		Currency:   "USD",
		Approvals:  []domain.Approval{},
	}

	suite.mockExpenseService.On("RetractApproval", mock.Anything, expenseID, approverID, adminID).
		Return(expense, nil).Once()

	req := suite.authedRequest(http.MethodDelete, "/api/v1/expenses/"+expenseID+"/approvals?approverId="+approverID, "", adminID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	suite.mockExpenseService.AssertExpectations(suite.T())
}

func (suite *ExpenseHandlerTestSuite) TestGetApprovalProgress_Success() {
	expenseID := uuid.NewString()
	userID := uuid.NewString()

	nextApprover := uuid.NewString()
	suite.mockExpenseService.On("GetApprovalProgress", mock.Anything, expenseID).
		Return(approval.Progress{Approved: 1, Total: 3, Required: 2, NextApproverID: &nextApprover}, nil).Once()

	req := suite.authedRequest(http.MethodGet, "/api/v1/expenses/"+expenseID+"/progress", "", userID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var body dto.ApprovalProgressResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	suite.Equal(1, body.Approved)
	suite.Equal(3, body.Total)
	suite.Equal(2, body.Required)
	suite.Require().NotNil(body.NextApproverID)
	suite.Equal(nextApprover, *body.NextApproverID)
}

func (suite *ExpenseHandlerTestSuite) TestGetExpense_NotFound() {
	expenseID := uuid.NewString()
	userID := uuid.NewString()

	suite.mockExpenseService.On("GetExpenseByID", mock.Anything, expenseID).
		Return(nil, apperrors.ErrNotFound).Once()

	req := suite.authedRequest(http.MethodGet, "/api/v1/expenses/"+expenseID, "", userID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNotFound, w.Code)
}
