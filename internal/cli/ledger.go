package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/boddenberg/spendlog/internal/currency"
	"github.com/boddenberg/spendlog/internal/domain"

	"github.com/urfave/cli/v2"
)

// ============================================================
// Pending items
// ============================================================

func (a *App) pendingCommand() *cli.Command {
	return &cli.Command{
		Name:  "pending",
		Usage: "items to buy later",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list pending items",
				Flags: pageFlags("created_at"),
				Action: func(c *cli.Context) error {
					st := a.listState(c)
					page, err := a.API.ListPendingItems(c.Context, st.Params())
					if err != nil {
						return a.fail("load pending items", err)
					}
					a.printPending(page, st)
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "add a pending item",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "qty", Value: 1}},
				Action: func(c *cli.Context) error {
					name := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
					if name == "" {
						return a.fail("add item", fmt.Errorf("a name is required"))
					}
					it, err := a.API.CreatePendingItem(c.Context, &domain.PendingItemCreate{Name: name, Quantity: c.Int("qty")})
					if err != nil {
						return a.fail("add item", err)
					}
					if it == nil {
						a.success("Added %q", name)
						return nil
					}
					a.success("Added %q (#%d)", it.Name, it.ID)
					return nil
				},
			},
			{
				Name:      "pay",
				Usage:     "turn a pending item into a receipt",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "merchant", Aliases: []string{"m"}, Required: true},
					&cli.Float64Flag{Name: "price", Required: true, Usage: "unit price"},
					&cli.StringFlag{Name: "date", Usage: "YYYY-MM-DD, default today"},
				},
				Action: a.payPending,
			},
			{
				Name:      "delete",
				Usage:     "delete a pending item",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := argID(c, 0)
					if err != nil {
						return a.fail("delete item", err)
					}
					if err := a.API.DeletePendingItem(c.Context, id); err != nil {
						return a.fail("delete item", err)
					}
					a.success("Item deleted")
					return nil
				},
			},
		},
	}
}

func (a *App) payPending(c *cli.Context) error {
	id, err := argID(c, 0)
	if err != nil {
		return a.fail("pay item", err)
	}
	d, err := parseDate(c.String("date"))
	if err != nil {
		return a.fail("pay item", err)
	}

	item, err := a.findPending(c, id)
	if err != nil {
		return a.fail("pay item", err)
	}
	r, err := a.API.PayPendingItem(c.Context, *item, c.String("merchant"), c.Float64("price"), d)
	if err != nil {
		return a.fail("pay item", err)
	}
	if r == nil {
		a.success("Receipt saved")
		return nil
	}
	a.success("Receipt #%d saved: %s", r.ID, a.money(r.TotalAmount))
	return nil
}

func (a *App) findPending(c *cli.Context, id int64) (*domain.Item, error) {
	params := domain.ListParams{Limit: domain.MaxPageLimit}
	for {
		page, err := a.API.ListPendingItems(c.Context, params)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		for i := range page.Items {
			if page.Items[i].ID == id {
				return &page.Items[i], nil
			}
		}
		params.Skip += len(page.Items)
		if len(page.Items) == 0 || params.Skip >= page.Total {
			break
		}
	}
	return nil, &domain.ErrNotFound{Resource: "pending item", ID: fmt.Sprint(id)}
}

// ============================================================
// Income
// ============================================================

func (a *App) incomeCommand() *cli.Command {
	return &cli.Command{
		Name:  "income",
		Usage: "list and manage income",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list income entries",
				Flags: append(append(pageFlags("date"),
					&cli.StringFlag{Name: "category"},
				), rangeFlags()...),
				Action: func(c *cli.Context) error {
					r, err := parseRange(c)
					if err != nil {
						return a.fail("load income", err)
					}
					st := a.listState(c)
					page, err := a.API.ListIncomes(c.Context, domain.IncomeFilter{
						ListParams: st.Params(),
						Category:   c.String("category"),
						Range:      r,
					})
					if err != nil {
						return a.fail("load income", err)
					}
					a.printIncomes(page, st)
					return nil
				},
			},
			{
				Name:  "add",
				Usage: "record income",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Required: true},
					&cli.Float64Flag{Name: "amount", Aliases: []string{"a"}, Required: true},
					&cli.StringFlag{Name: "category", Value: string(domain.IncomeOther)},
					&cli.StringFlag{Name: "date", Usage: "YYYY-MM-DD, default today"},
					&cli.StringFlag{Name: "description"},
				},
				Action: func(c *cli.Context) error {
					d, err := parseDate(c.String("date"))
					if err != nil {
						return a.fail("save income", err)
					}
					in, err := a.API.CreateIncome(c.Context, &domain.IncomeCreate{
						Source:      c.String("source"),
						Amount:      c.Float64("amount"),
						Currency:    a.Currency.Code(),
						Category:    domain.IncomeCategory(c.String("category")),
						Date:        d,
						Description: c.String("description"),
					})
					if err != nil {
						return a.fail("save income", err)
					}
					if in == nil {
						a.success("Income saved")
						return nil
					}
					a.success("Income #%d saved: %s", in.ID, a.money(in.Amount))
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "delete an income entry",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := argID(c, 0)
					if err != nil {
						return a.fail("delete income", err)
					}
					if err := a.API.DeleteIncome(c.Context, id); err != nil {
						return a.fail("delete income", err)
					}
					a.success("Income deleted")
					return nil
				},
			},
		},
	}
}

// ============================================================
// Dashboard, settings and export
// ============================================================

func (a *App) dashboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "spending and income summary",
		Flags: rangeFlags(),
		Action: func(c *cli.Context) error {
			r, err := parseRange(c)
			if err != nil {
				return a.fail("load dashboard", err)
			}
			data, err := a.API.GetDashboardStats(c.Context, r.Start, r.End)
			if err != nil {
				return a.fail("load dashboard", err)
			}
			if data == nil {
				data = &domain.DashboardData{}
			}
			a.printDashboard(data)
			return nil
		},
	}
}

func (a *App) settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "user preferences",
		Subcommands: []*cli.Command{
			{
				Name:      "currency",
				Usage:     "show or set the display currency (TND, USD, EUR)",
				ArgsUsage: "[CODE]",
				Action: func(c *cli.Context) error {
					code := strings.ToUpper(c.Args().First())
					if code == "" {
						cur := a.Currency.Code()
						fmt.Fprintf(a.Out, "%s (%s)\n", cur, currency.Symbol(cur))
						return nil
					}
					if err := a.Currency.Set(c.Context, domain.CurrencyCode(code)); err != nil {
						return a.fail("update currency", err)
					}
					a.success("Currency set to %s", code)
					return nil
				},
			},
		},
	}
}

func (a *App) exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "download the xlsx report",
		Flags: append(rangeFlags(),
			&cli.StringFlag{Name: "dir", Value: ".", Usage: "directory to save the report in"},
		),
		Action: func(c *cli.Context) error {
			r, err := parseRange(c)
			if err != nil {
				return a.fail("export", err)
			}
			var buf bytes.Buffer
			name, err := a.API.ExportReport(c.Context, r, &buf)
			if err != nil {
				return a.fail("export", err)
			}
			path := filepath.Join(c.String("dir"), filepath.Base(name))
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return a.fail("export", err)
			}
			a.success("Report saved to %s (%s)", path, humanizeBytes(int64(buf.Len())))
			return nil
		},
	}
}
