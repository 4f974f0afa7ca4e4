package service_test

import (
	"context"
	"testing"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/service"
)

type mockDashboardStore struct {
	service.LedgerStore

	receipts []domain.AmountRow
	income   []domain.AmountRow
	counts   []domain.DateRange
}

func (m *mockDashboardStore) ReceiptRows(_ context.Context, _ string, _ domain.DateRange) ([]domain.AmountRow, error) {
	return m.receipts, nil
}

func (m *mockDashboardStore) IncomeRows(_ context.Context, _ string, _ domain.DateRange) ([]domain.AmountRow, error) {
	return m.income, nil
}

func (m *mockDashboardStore) CountReceipts(_ context.Context, _ string, r domain.DateRange) (int, error) {
	m.counts = append(m.counts, r)
	if r.End.IsZero() {
		return 6, nil // last 30 days
	}
	return 2, nil // this month
}

func row(label, category string, amount float64) domain.AmountRow {
	return domain.AmountRow{Label: label, Category: category, Amount: amount}
}

func TestAggregate(t *testing.T) {
	receipts := []domain.AmountRow{
		row("Carrefour", "Food", 30),
		row("Carrefour", "Food", 10),
		row("Shell", "Transportation", 40),
		row("Pharmacy", "Health", 20),
	}
	income := []domain.AmountRow{
		row("ACME", "Salary", 1000),
		row("Upwork", "Freelance", 500),
	}

	d := service.Aggregate(receipts, income, 3, 10)

	if d.Stats.TotalReceipts != 4 || d.Stats.TotalSpent != 100 || d.Stats.TotalIncome != 1500 {
		t.Errorf("unexpected totals %+v", d.Stats)
	}
	if d.Stats.AvgReceipt != 25 || d.Stats.MostExpensive != 40 {
		t.Errorf("unexpected avg/max %+v", d.Stats)
	}
	if d.Stats.ThisMonth != 3 || d.Stats.ReceiptsPerWeek != 2.5 {
		t.Errorf("unexpected velocity %+v", d.Stats)
	}

	if len(d.TopMerchants) != 3 {
		t.Fatalf("expected 3 merchants, got %d", len(d.TopMerchants))
	}
	// Carrefour and Shell tie at 40; name order breaks the tie.
	top := d.TopMerchants[0]
	if top.MerchantName != "Carrefour" || top.Amount != 40 || top.Count != 2 || top.Percentage != 40 {
		t.Errorf("unexpected top merchant %+v", top)
	}

	if d.SpendingByCategory[0].Category != "Food" || d.SpendingByCategory[2].Category != "Health" {
		t.Errorf("unexpected category order %+v", d.SpendingByCategory)
	}
	if d.IncomeByCategory[0].Percentage != 66.67 || d.IncomeByCategory[1].Percentage != 33.33 {
		t.Errorf("unexpected income percentages %+v", d.IncomeByCategory)
	}
	if d.TopIncomeSources[0].MerchantName != "ACME" {
		t.Errorf("unexpected income sources %+v", d.TopIncomeSources)
	}
}

func TestAggregate_TopFiveOnly(t *testing.T) {
	var receipts []domain.AmountRow
	for i, m := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		receipts = append(receipts, row(m, "Food", float64(i+1)))
	}

	d := service.Aggregate(receipts, nil, 0, 0)

	if len(d.TopMerchants) != 5 {
		t.Fatalf("expected 5 merchants, got %d", len(d.TopMerchants))
	}
	if d.TopMerchants[0].MerchantName != "g" || d.TopMerchants[4].MerchantName != "c" {
		t.Errorf("unexpected ranking %+v", d.TopMerchants)
	}
	if len(d.SpendingByCategory) != 1 || d.SpendingByCategory[0].Percentage != 100 {
		t.Errorf("unexpected categories %+v", d.SpendingByCategory)
	}
}

func TestAggregate_Empty(t *testing.T) {
	d := service.Aggregate(nil, nil, 0, 0)

	if d.Stats.AvgReceipt != 0 || d.Stats.TotalSpent != 0 {
		t.Errorf("expected zero stats, got %+v", d.Stats)
	}
	if d.TopMerchants == nil || d.IncomeByCategory == nil {
		t.Error("expected empty, non-nil rankings")
	}
}

func TestAggregate_RoundsMoney(t *testing.T) {
	d := service.Aggregate([]domain.AmountRow{row("x", "Food", 0.1), row("x", "Food", 0.2), row("y", "Food", 10)}, nil, 0, 0)

	if d.Stats.TotalSpent != 10.3 {
		t.Errorf("expected 10.3, got %v", d.Stats.TotalSpent)
	}
	if d.Stats.AvgReceipt != 3.43 {
		t.Errorf("expected avg 3.43, got %v", d.Stats.AvgReceipt)
	}
}

func TestGetDashboard(t *testing.T) {
	store := &mockDashboardStore{
		receipts: []domain.AmountRow{row("Shop", "Food", 12.5)},
		income:   []domain.AmountRow{row("ACME", "Salary", 100)},
	}
	svc, _ := newLedger(store)

	d, err := svc.GetDashboard(context.Background(), "u1", domain.DateRange{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.Stats.ThisMonth != 2 || d.Stats.ReceiptsPerWeek != 1.5 {
		t.Errorf("unexpected counts %+v", d.Stats)
	}
	if d.Stats.TotalIncome != 100 || d.Stats.TotalSpent != 12.5 {
		t.Errorf("unexpected totals %+v", d.Stats)
	}
	if len(store.counts) != 2 {
		t.Errorf("expected two count queries, got %d", len(store.counts))
	}
}

func TestGetDashboard_InvertedRange(t *testing.T) {
	svc, _ := newLedger(&mockDashboardStore{})

	_, err := svc.GetDashboard(context.Background(), "u1", domain.DateRange{
		Start: domain.NewDate(2024, 5, 1),
		End:   domain.NewDate(2024, 4, 1),
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
}
