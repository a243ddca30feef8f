package dto

import (
	"github.com/expenseasy/expenseasy_backend/internal/core/domain"
)

// CreateCompanyRequest defines the data needed to create a company.
type CreateCompanyRequest struct {
	Name           string `json:"name" binding:"required"`
	CurrencyCode   string `json:"currencyCode" binding:"required,uppercase,len=3"`
	CurrencyName   string `json:"currencyName" binding:"required"`
	CurrencySymbol string `json:"currencySymbol" binding:"required"`
}

// CompanyResponse is the public representation of a company.
type CompanyResponse struct {
	CompanyID string          `json:"companyID"`
	Name      string          `json:"name"`
	Currency  domain.Currency `json:"currency"`
}

// ToCompanyResponse converts a domain.Company to its response DTO.
func ToCompanyResponse(company *domain.Company) CompanyResponse {
	return CompanyResponse{
		CompanyID: company.CompanyID,
		Name:      company.Name,
		Currency:  company.Currency,
	}
}
