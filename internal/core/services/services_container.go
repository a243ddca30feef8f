package services

import (
	portsrepo "github.com/expenseasy/expenseasy_backend/internal/core/ports/repositories"
	portssvc "github.com/expenseasy/expenseasy_backend/internal/core/ports/services"
	"github.com/expenseasy/expenseasy_backend/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized
// dependencies. notifier and rateFetcher are adapter-side collaborators.
func NewServiceContainer(
	cfg *config.Config,
	repos portsrepo.RepositoryProvider,
	notifier portssvc.Notifier,
	rateFetcher portssvc.RateFetcher,
) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.User = NewUserService(repos.UserRepo)
	container.Company = NewCompanyService(repos.CompanyRepo)
	container.Policy = NewPolicyService(repos.PolicyRepo, repos.UserRepo)
	container.Expense = NewExpenseService(repos.ExpenseRepo, repos.UserRepo, container.Policy, notifier)
	container.ExchangeRate = NewExchangeRateService(rateFetcher, cfg.ExchangeRateCacheTTL)

	container.TokenService = NewTokenService(cfg, container.User)
	container.GoogleOAuthHandler = NewGoogleOAuthHandlerService(cfg)
	container.Auth = NewAuthService(
		repos.UserRepo,
		container.User,
		container.Company,
		container.TokenService,
		container.GoogleOAuthHandler,
	)

	return container
}
