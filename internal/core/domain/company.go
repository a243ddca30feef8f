package domain

// Currency describes the home currency of a company.
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Company owns users, expenses and approval policies.
type Company struct {
	CompanyID string   `json:"companyID"`
	Name      string   `json:"name"`
	Currency  Currency `json:"currency"`
	AuditFields
}
