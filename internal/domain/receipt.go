package domain

import (
	"strings"
	"time"
)

// ============================================================
// Receipts & Items
// ============================================================

// ExpenseCategory labels what a receipt was spent on.
type ExpenseCategory string

const (
	CategoryFood           ExpenseCategory = "Food"
	CategoryTransportation ExpenseCategory = "Transportation"
	CategoryShopping       ExpenseCategory = "Shopping"
	CategoryEntertainment  ExpenseCategory = "Entertainment"
	CategoryHealth         ExpenseCategory = "Health"
	CategoryHousing        ExpenseCategory = "Housing"
	CategoryTravel         ExpenseCategory = "Travel"
	CategoryWork           ExpenseCategory = "Work"
	CategoryBills          ExpenseCategory = "Bills"
	CategoryFitness        ExpenseCategory = "Fitness"
	CategoryUncategorized  ExpenseCategory = "Uncategorized"
)

// ExpenseCategories lists every valid expense category.
var ExpenseCategories = []ExpenseCategory{
	CategoryFood, CategoryTransportation, CategoryShopping, CategoryEntertainment,
	CategoryHealth, CategoryHousing, CategoryTravel, CategoryWork, CategoryBills,
	CategoryFitness, CategoryUncategorized,
}

// Valid reports whether c is a known expense category.
func (c ExpenseCategory) Valid() bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Item is a receipt line, or a pending to-buy entry when ReceiptID is nil.
type Item struct {
	ID        int64   `json:"id,omitempty"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ReceiptID *int64  `json:"receipt_id,omitempty"`
	UserID    string  `json:"user_id,omitempty"`
}

// Input returns the editable fields of the item.
func (it Item) Input() ItemInput {
	return ItemInput{Name: it.Name, Price: it.Price, Quantity: it.Quantity}
}

// ItemInput is the payload to create or replace an item.
type ItemInput struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Validate checks an item payload.
func (in *ItemInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return &ErrValidation{Field: "name", Message: "is required"}
	}
	if in.Price < 0 {
		return &ErrValidation{Field: "price", Message: "must not be negative"}
	}
	if in.Quantity < 1 {
		return &ErrValidation{Field: "quantity", Message: "must be at least 1"}
	}
	return nil
}

// Receipt is a recorded purchase.
type Receipt struct {
	ID           int64           `json:"id"`
	MerchantName string          `json:"merchant_name"`
	Date         Date            `json:"date"`
	TotalAmount  float64         `json:"total_amount"`
	Currency     CurrencyCode    `json:"currency"`
	Category     ExpenseCategory `json:"category"`
	Location     string          `json:"location,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Items        []Item          `json:"items"`
}

// ReceiptCreate is the payload of POST /receipts.
// A nil TotalAmount is filled with the sum of the items.
type ReceiptCreate struct {
	MerchantName   string          `json:"merchant_name"`
	Date           Date            `json:"date"`
	TotalAmount    *float64        `json:"total_amount,omitempty"`
	Currency       CurrencyCode    `json:"currency,omitempty"`
	Category       ExpenseCategory `json:"category,omitempty"`
	Location       string          `json:"location,omitempty"`
	ImageURL       string          `json:"image_url,omitempty"`
	Items          []ItemInput     `json:"items,omitempty"`
	PendingItemIDs []int64         `json:"pending_item_ids,omitempty"`
}

// Normalize applies defaults and validates the payload.
func (in *ReceiptCreate) Normalize() error {
	in.MerchantName = strings.TrimSpace(in.MerchantName)
	if in.MerchantName == "" {
		return &ErrValidation{Field: "merchant_name", Message: "is required"}
	}
	if in.Date.IsZero() {
		return &ErrValidation{Field: "date", Message: "is required"}
	}
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	if !in.Currency.Valid() {
		return &ErrValidation{Field: "currency", Message: "must be one of TND, USD, EUR"}
	}
	if in.Category == "" {
		in.Category = CategoryUncategorized
	}
	if !in.Category.Valid() {
		return &ErrValidation{Field: "category", Message: "unknown category " + string(in.Category)}
	}
	for i := range in.Items {
		if err := in.Items[i].Validate(); err != nil {
			return err
		}
	}
	if in.TotalAmount == nil {
		total := ItemsTotal(in.Items)
		in.TotalAmount = &total
	}
	if *in.TotalAmount < 0 {
		return &ErrValidation{Field: "total_amount", Message: "must not be negative"}
	}
	return nil
}

// ReceiptUpdate is the payload of PUT /receipts/{id}. Nil fields are left unchanged;
// a non-nil Items replaces every item of the receipt.
type ReceiptUpdate struct {
	MerchantName *string          `json:"merchant_name,omitempty"`
	Date         *Date            `json:"date,omitempty"`
	TotalAmount  *float64         `json:"total_amount,omitempty"`
	Currency     *CurrencyCode    `json:"currency,omitempty"`
	Category     *ExpenseCategory `json:"category,omitempty"`
	Location     *string          `json:"location,omitempty"`
	ImageURL     *string          `json:"image_url,omitempty"`
	Items        *[]ItemInput     `json:"items,omitempty"`
}

// Validate checks the fields that are present.
func (in *ReceiptUpdate) Validate() error {
	if in.MerchantName != nil && strings.TrimSpace(*in.MerchantName) == "" {
		return &ErrValidation{Field: "merchant_name", Message: "must not be empty"}
	}
	if in.Date != nil && in.Date.IsZero() {
		return &ErrValidation{Field: "date", Message: "must not be empty"}
	}
	if in.Currency != nil && !in.Currency.Valid() {
		return &ErrValidation{Field: "currency", Message: "must be one of TND, USD, EUR"}
	}
	if in.Category != nil && !in.Category.Valid() {
		return &ErrValidation{Field: "category", Message: "unknown category " + string(*in.Category)}
	}
	if in.TotalAmount != nil && *in.TotalAmount < 0 {
		return &ErrValidation{Field: "total_amount", Message: "must not be negative"}
	}
	if in.Items != nil {
		items := *in.Items
		for i := range items {
			if err := items[i].Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReceiptFilter narrows GET /receipts.
type ReceiptFilter struct {
	ListParams
	Category     string
	MerchantName string
	Range        DateRange
}

// PendingItemCreate is the payload of POST /items/pending.
type PendingItemCreate struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity,omitempty"`
}
