package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	topRankLimit     = 5
	velocityWindow   = 30 * 24 * time.Hour
	weeksPerVelocity = 4
)

// ============================================================
// Dashboard
// ============================================================

// GetDashboard aggregates the user's receipts and income dated in r.
// this_month and receipts_per_week ignore r: the first counts the current
// calendar month, the second is the last 30 days divided by four.
func (s *LedgerService) GetDashboard(ctx context.Context, userID string, r domain.DateRange) (*domain.DashboardData, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetDashboard")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("range.start", r.Start.String()),
		attribute.String("range.end", r.End.String()),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("dashboard", time.Since(start)) }()

	if err := validateRange(r); err != nil {
		return nil, err
	}

	now := time.Now()
	monthStart := domain.NewDate(now.Year(), now.Month(), 1)
	month := domain.DateRange{Start: monthStart, End: domain.DateOf(monthStart.AddDate(0, 1, -1))}
	recent := domain.DateRange{Start: domain.DateOf(now.Add(-velocityWindow))}

	var (
		receipts, income    []domain.AmountRow
		thisMonth, lastDays int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if receipts, err = s.store.ReceiptRows(gctx, userID, r); err != nil {
			return fmt.Errorf("receipt rows: %w", err)
		}
		if thisMonth, err = s.store.CountReceipts(gctx, userID, month); err != nil {
			return fmt.Errorf("count this month: %w", err)
		}
		if lastDays, err = s.store.CountReceipts(gctx, userID, recent); err != nil {
			return fmt.Errorf("count recent: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if income, err = s.store.IncomeRows(gctx, userID, r); err != nil {
			return fmt.Errorf("income rows: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Aggregate(receipts, income, thisMonth, lastDays), nil
}

// Aggregate builds the dashboard from already filtered rows.
// recentCount is the number of receipts in the last 30 days.
func Aggregate(receipts, income []domain.AmountRow, thisMonth, recentCount int) *domain.DashboardData {
	spent, most := decimal.Zero, decimal.Zero
	for _, row := range receipts {
		amt := decimal.NewFromFloat(row.Amount)
		spent = spent.Add(amt)
		if amt.GreaterThan(most) {
			most = amt
		}
	}
	earned := decimal.Zero
	for _, row := range income {
		earned = earned.Add(decimal.NewFromFloat(row.Amount))
	}

	avg := decimal.Zero
	if len(receipts) > 0 {
		avg = spent.Div(decimal.NewFromInt(int64(len(receipts))))
	}
	perWeek := decimal.NewFromInt(int64(recentCount)).Div(decimal.NewFromInt(weeksPerVelocity))

	totalSpent := money(spent)
	totalIncome := money(earned)

	data := &domain.DashboardData{
		Stats: domain.DashboardStats{
			TotalReceipts:   len(receipts),
			ThisMonth:       thisMonth,
			TotalSpent:      totalSpent,
			TotalIncome:     totalIncome,
			AvgReceipt:      money(avg),
			MostExpensive:   money(most),
			ReceiptsPerWeek: money(perWeek),
		},
		TopMerchants:       []domain.MerchantStat{},
		SpendingByCategory: []domain.CategoryStat{},
		TopIncomeSources:   []domain.MerchantStat{},
		IncomeByCategory:   []domain.CategoryStat{},
	}

	for _, g := range rank(receipts, byLabel, topRankLimit) {
		data.TopMerchants = append(data.TopMerchants, g.merchant(spent))
	}
	for _, g := range rank(receipts, byCategory, 0) {
		data.SpendingByCategory = append(data.SpendingByCategory, g.category(spent))
	}
	for _, g := range rank(income, byLabel, topRankLimit) {
		data.TopIncomeSources = append(data.TopIncomeSources, g.merchant(earned))
	}
	for _, g := range rank(income, byCategory, 0) {
		data.IncomeByCategory = append(data.IncomeByCategory, g.category(earned))
	}
	return data
}

type group struct {
	key    string
	amount decimal.Decimal
	count  int
}

func (g group) share(total decimal.Decimal) float64 {
	a, _ := g.amount.Float64()
	t, _ := total.Float64()
	return domain.Percentage(a, t)
}

func (g group) merchant(total decimal.Decimal) domain.MerchantStat {
	return domain.MerchantStat{MerchantName: g.key, Amount: money(g.amount), Percentage: g.share(total), Count: g.count}
}

func (g group) category(total decimal.Decimal) domain.CategoryStat {
	return domain.CategoryStat{Category: g.key, Amount: money(g.amount), Percentage: g.share(total), Count: g.count}
}

func byLabel(r domain.AmountRow) string    { return r.Label }
func byCategory(r domain.AmountRow) string { return r.Category }

// rank groups rows by key and orders the groups by amount, largest first.
// Ties keep name order. limit 0 keeps every group.
func rank(rows []domain.AmountRow, key func(domain.AmountRow) string, limit int) []group {
	idx := make(map[string]int)
	var groups []group
	for _, row := range rows {
		k := key(row)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, group{key: k, amount: decimal.Zero})
		}
		groups[i].amount = groups[i].amount.Add(decimal.NewFromFloat(row.Amount))
		groups[i].count++
	}

	sort.SliceStable(groups, func(a, b int) bool {
		if c := groups[a].amount.Cmp(groups[b].amount); c != 0 {
			return c > 0
		}
		return groups[a].key < groups[b].key
	})
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
