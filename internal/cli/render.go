package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/pagination"

	"github.com/dustin/go-humanize"
)

func newTable(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(tw, strings.Join(parts, "\t"))
}

func pageFooter(w io.Writer, st *pagination.State, total int) {
	fmt.Fprintf(w, "Page %d of %d (%s total, sorted by %s %s)\n",
		st.Page(), st.TotalPages(total), humanize.Comma(int64(total)), st.SortBy(), st.Order())
}

func humanizeTime(t time.Time) string { return humanize.Time(t) }

func humanizeBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

func (a *App) money(amount float64) string { return a.Currency.Format(amount) }

// pageOf unpacks a page; a null page is empty.
func pageOf[T any](p *domain.Page[T]) ([]T, int) {
	if p == nil {
		return nil, 0
	}
	return p.Items, p.Total
}

func (a *App) printReceipts(page *domain.Page[domain.Receipt], st *pagination.State) {
	items, total := pageOf(page)
	tw := newTable(a.Out, "ID", "DATE", "MERCHANT", "CATEGORY", "ITEMS", "TOTAL", "ADDED")
	for _, r := range items {
		row(tw, r.ID, r.Date, r.MerchantName, r.Category, len(r.Items), a.money(r.TotalAmount), since(r.CreatedAt))
	}
	tw.Flush()
	pageFooter(a.Out, st, total)
}

func (a *App) printReceipt(r *domain.Receipt) {
	fmt.Fprintf(a.Out, "Receipt #%d  %s\n", r.ID, r.MerchantName)
	fmt.Fprintf(a.Out, "Date:      %s\n", r.Date)
	fmt.Fprintf(a.Out, "Category:  %s\n", r.Category)
	if r.Location != "" {
		fmt.Fprintf(a.Out, "Location:  %s\n", r.Location)
	}
	if r.ImageURL != "" {
		fmt.Fprintf(a.Out, "Image:     %s\n", a.API.ResolveAttachmentURL(r.ImageURL))
	}
	if len(r.Items) > 0 {
		tw := newTable(a.Out, "ITEM", "NAME", "QTY", "PRICE", "SUBTOTAL")
		for _, it := range r.Items {
			row(tw, it.ID, it.Name, it.Quantity, a.money(it.Price), a.money(domain.ItemsTotal([]domain.ItemInput{it.Input()})))
		}
		tw.Flush()
	}
	fmt.Fprintf(a.Out, "Total:     %s\n", a.money(r.TotalAmount))
}

func (a *App) printPending(page *domain.Page[domain.Item], st *pagination.State) {
	items, total := pageOf(page)
	if len(items) == 0 && total == 0 {
		fmt.Fprintln(a.Out, "Your list is empty")
		fmt.Fprintln(a.Out, "Add items with: spendlogctl pending add NAME")
		return
	}
	tw := newTable(a.Out, "ID", "NAME", "QTY")
	for _, it := range items {
		row(tw, it.ID, it.Name, it.Quantity)
	}
	tw.Flush()
	pageFooter(a.Out, st, total)
}

func (a *App) printIncomes(page *domain.Page[domain.Income], st *pagination.State) {
	items, total := pageOf(page)
	tw := newTable(a.Out, "ID", "DATE", "SOURCE", "CATEGORY", "AMOUNT")
	for _, in := range items {
		row(tw, in.ID, in.Date, in.Source, in.Category, a.money(in.Amount))
	}
	tw.Flush()
	pageFooter(a.Out, st, total)
}

func (a *App) printDashboard(d *domain.DashboardData) {
	s := d.Stats
	fmt.Fprintf(a.Out, "Receipts:        %s (%d this month, %.1f per week)\n", humanize.Comma(int64(s.TotalReceipts)), s.ThisMonth, s.ReceiptsPerWeek)
	fmt.Fprintf(a.Out, "Total spent:     %s\n", a.money(s.TotalSpent))
	fmt.Fprintf(a.Out, "Total income:    %s\n", a.money(s.TotalIncome))
	fmt.Fprintf(a.Out, "Average receipt: %s\n", a.money(s.AvgReceipt))
	fmt.Fprintf(a.Out, "Most expensive:  %s\n", a.money(s.MostExpensive))

	a.printRanking("Top merchants", d.TopMerchants)
	a.printCategories("Spending by category", d.SpendingByCategory)
	a.printRanking("Top income sources", d.TopIncomeSources)
	a.printCategories("Income by category", d.IncomeByCategory)
}

func (a *App) printRanking(title string, rows []domain.MerchantStat) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(a.Out, "\n%s\n", title)
	tw := newTable(a.Out, "NAME", "AMOUNT", "SHARE", "COUNT")
	for _, r := range rows {
		row(tw, r.MerchantName, a.money(r.Amount), fmt.Sprintf("%.1f%%", r.Percentage), r.Count)
	}
	tw.Flush()
}

func (a *App) printCategories(title string, rows []domain.CategoryStat) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(a.Out, "\n%s\n", title)
	tw := newTable(a.Out, "CATEGORY", "AMOUNT", "SHARE", "COUNT")
	for _, r := range rows {
		row(tw, r.Category, a.money(r.Amount), fmt.Sprintf("%.1f%%", r.Percentage), r.Count)
	}
	tw.Flush()
}
