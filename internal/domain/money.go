package domain

import "github.com/shopspring/decimal"

// CurrencyCode is one of the three currencies a user can pick.
type CurrencyCode string

const (
	CurrencyTND CurrencyCode = "TND"
	CurrencyUSD CurrencyCode = "USD"
	CurrencyEUR CurrencyCode = "EUR"
)

// DefaultCurrency is used for new settings, receipts and income entries.
const DefaultCurrency = CurrencyTND

// Valid reports whether c is a supported currency code.
func (c CurrencyCode) Valid() bool {
	switch c {
	case CurrencyTND, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// ItemsTotal returns the sum of price*quantity over items.
// Decimal arithmetic keeps 3.5*2 at exactly 7.
func ItemsTotal(items []ItemInput) float64 {
	sum := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		sum = sum.Add(line)
	}
	f, _ := sum.Float64()
	return f
}

// RoundMoney rounds v half away from zero to two decimal places.
func RoundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Percentage returns part/total*100 rounded to two places, or 0 when total is not positive.
func Percentage(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(part).Div(decimal.NewFromFloat(total)).Mul(decimal.NewFromInt(100))
	f, _ := p.Round(2).Float64()
	return f
}
