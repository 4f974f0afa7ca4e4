package domain

// ============================================================
// Dashboard read model
// ============================================================

// DashboardStats is the headline block of the dashboard.
type DashboardStats struct {
	TotalReceipts   int     `json:"total_receipts"`
	ThisMonth       int     `json:"this_month"`
	TotalSpent      float64 `json:"total_spent"`
	TotalIncome     float64 `json:"total_income"`
	AvgReceipt      float64 `json:"avg_receipt"`
	MostExpensive   float64 `json:"most_expensive"`
	ReceiptsPerWeek float64 `json:"receipts_per_week"`
}

// MerchantStat ranks a merchant (or, for income, a source).
type MerchantStat struct {
	MerchantName string  `json:"merchant_name"`
	Amount       float64 `json:"amount"`
	Percentage   float64 `json:"percentage"`
	Count        int     `json:"count"`
}

// CategoryStat ranks a category.
type CategoryStat struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// DashboardData is the full GET /receipts/dashboard/stats answer.
type DashboardData struct {
	Stats              DashboardStats `json:"stats"`
	TopMerchants       []MerchantStat `json:"top_merchants"`
	SpendingByCategory []CategoryStat `json:"spending_by_category"`
	TopIncomeSources   []MerchantStat `json:"top_income_sources"`
	IncomeByCategory   []CategoryStat `json:"income_by_category"`
}

// AmountRow is one receipt or income entry reduced to what the
// dashboard aggregates: who (merchant or source), what category, how much.
type AmountRow struct {
	Label    string
	Category string
	Amount   float64
	Date     Date
}
