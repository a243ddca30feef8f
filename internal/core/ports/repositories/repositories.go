package repositories

// RepositoryProvider bundles all repository facades for dependency injection.
type RepositoryProvider struct {
	UserRepo    UserRepositoryFacade
	CompanyRepo CompanyRepositoryFacade
	PolicyRepo  PolicyRepositoryFacade
	ExpenseRepo ExpenseRepositoryFacade
}
