package domain

import (
	"strings"
	"time"
)

// ============================================================
// Income
// ============================================================

// IncomeCategory is the closed set of income kinds.
type IncomeCategory string

const (
	IncomeSalary     IncomeCategory = "Salary"
	IncomeFreelance  IncomeCategory = "Freelance"
	IncomeBusiness   IncomeCategory = "Business"
	IncomeInvestment IncomeCategory = "Investment"
	IncomeOther      IncomeCategory = "Other"
)

// Valid reports whether c is a known income category.
func (c IncomeCategory) Valid() bool {
	switch c {
	case IncomeSalary, IncomeFreelance, IncomeBusiness, IncomeInvestment, IncomeOther:
		return true
	}
	return false
}

// Income is a recorded income entry.
type Income struct {
	ID          int64          `json:"id"`
	Source      string         `json:"source"`
	Amount      float64        `json:"amount"`
	Currency    CurrencyCode   `json:"currency"`
	Category    IncomeCategory `json:"category"`
	Date        Date           `json:"date"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// IncomeCreate is the payload of POST /income.
type IncomeCreate struct {
	Source      string         `json:"source"`
	Amount      float64        `json:"amount"`
	Currency    CurrencyCode   `json:"currency,omitempty"`
	Category    IncomeCategory `json:"category"`
	Date        Date           `json:"date"`
	Description string         `json:"description,omitempty"`
}

// Normalize applies defaults and validates the payload.
func (in *IncomeCreate) Normalize() error {
	in.Source = strings.TrimSpace(in.Source)
	if in.Source == "" {
		return &ErrValidation{Field: "source", Message: "is required"}
	}
	if in.Amount < 0 {
		return &ErrValidation{Field: "amount", Message: "must not be negative"}
	}
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	if !in.Currency.Valid() {
		return &ErrValidation{Field: "currency", Message: "must be one of TND, USD, EUR"}
	}
	if !in.Category.Valid() {
		return &ErrValidation{Field: "category", Message: "must be one of Salary, Freelance, Business, Investment, Other"}
	}
	if in.Date.IsZero() {
		return &ErrValidation{Field: "date", Message: "is required"}
	}
	return nil
}

// IncomeUpdate is the payload of PATCH /income/{id}.
type IncomeUpdate struct {
	Source      *string         `json:"source,omitempty"`
	Amount      *float64        `json:"amount,omitempty"`
	Currency    *CurrencyCode   `json:"currency,omitempty"`
	Category    *IncomeCategory `json:"category,omitempty"`
	Date        *Date           `json:"date,omitempty"`
	Description *string         `json:"description,omitempty"`
}

// Validate checks the fields that are present.
func (in *IncomeUpdate) Validate() error {
	if in.Source != nil && strings.TrimSpace(*in.Source) == "" {
		return &ErrValidation{Field: "source", Message: "must not be empty"}
	}
	if in.Amount != nil && *in.Amount < 0 {
		return &ErrValidation{Field: "amount", Message: "must not be negative"}
	}
	if in.Currency != nil && !in.Currency.Valid() {
		return &ErrValidation{Field: "currency", Message: "must be one of TND, USD, EUR"}
	}
	if in.Category != nil && !in.Category.Valid() {
		return &ErrValidation{Field: "category", Message: "must be one of Salary, Freelance, Business, Investment, Other"}
	}
	if in.Date != nil && in.Date.IsZero() {
		return &ErrValidation{Field: "date", Message: "must not be empty"}
	}
	return nil
}

// IncomeFilter narrows GET /income.
type IncomeFilter struct {
	ListParams
	Category string
	Range    DateRange
}
