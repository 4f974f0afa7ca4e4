package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/boddenberg/spendlog/internal/domain"
	"github.com/boddenberg/spendlog/internal/pagination"

	"github.com/urfave/cli/v2"
)

// listState builds the pagination state from the page flags.
func (a *App) listState(c *cli.Context) *pagination.State {
	size := a.PageSize
	if c.IsSet("page-size") {
		size = c.Int("page-size")
	}
	st := pagination.New(size, c.String("sort"))
	if c.Bool("asc") {
		st.OnSort(c.String("sort"))
	}
	st.OnPageChange(c.Int("page"))
	return st
}

func argID(c *cli.Context, n int) (int64, error) {
	raw := c.Args().Get(n)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// parseItem reads NAME:PRICE[:QTY]. The name may itself contain colons.
func parseItem(s string) (domain.ItemInput, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return domain.ItemInput{}, fmt.Errorf("item %q: want NAME:PRICE[:QTY]", s)
	}
	qty := 1
	if len(parts) >= 3 {
		if q, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			qty = q
			parts = parts[:len(parts)-1]
		}
	}
	price, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return domain.ItemInput{}, fmt.Errorf("item %q: invalid price", s)
	}
	in := domain.ItemInput{Name: strings.Join(parts[:len(parts)-1], ":"), Price: price, Quantity: qty}
	if err := in.Validate(); err != nil {
		return domain.ItemInput{}, fmt.Errorf("item %q: %w", s, err)
	}
	return in, nil
}

func (a *App) receiptsCommand() *cli.Command {
	return &cli.Command{
		Name:    "receipts",
		Aliases: []string{"r"},
		Usage:   "list and manage receipts",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list receipts",
				Flags: append(append(pageFlags("date"),
					&cli.StringFlag{Name: "category"},
					&cli.StringFlag{Name: "merchant"},
				), rangeFlags()...),
				Action: a.listReceipts,
			},
			{
				Name:      "show",
				Usage:     "show one receipt with its items",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := argID(c, 0)
					if err != nil {
						return a.fail("load receipt", err)
					}
					r, err := a.loadReceipt(c, id)
					if err != nil {
						return a.fail("load receipt", err)
					}
					a.printReceipt(r)
					return nil
				},
			},
			{
				Name:  "add",
				Usage: "record a receipt",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "merchant", Aliases: []string{"m"}, Required: true},
					&cli.StringFlag{Name: "date", Usage: "YYYY-MM-DD, default today"},
					&cli.StringFlag{Name: "category", Value: string(domain.CategoryUncategorized)},
					&cli.StringFlag{Name: "currency", Usage: "default is your preferred currency"},
					&cli.StringFlag{Name: "location"},
					&cli.StringSliceFlag{Name: "item", Aliases: []string{"i"}, Usage: "NAME:PRICE[:QTY], repeatable"},
					&cli.Float64Flag{Name: "total", Usage: "override the total computed from the items"},
					&cli.StringFlag{Name: "image", Usage: "attach this file"},
				},
				Action: a.addReceipt,
			},
			{
				Name:      "delete",
				Usage:     "delete a receipt",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := argID(c, 0)
					if err != nil {
						return a.fail("delete receipt", err)
					}
					if err := a.API.DeleteReceipt(c.Context, id); err != nil {
						return a.fail("delete receipt", err)
					}
					a.success("Receipt deleted")
					return nil
				},
			},
			{
				Name:      "add-item",
				Usage:     "add an item to a receipt",
				ArgsUsage: "ID NAME:PRICE[:QTY]",
				Action: func(c *cli.Context) error {
					id, err := argID(c, 0)
					if err != nil {
						return a.fail("add item", err)
					}
					in, err := parseItem(c.Args().Get(1))
					if err != nil {
						return a.fail("add item", err)
					}
					return a.editItems(c, "add item", id, func(_ *domain.Receipt, d *domain.ReceiptDraft) error {
						d.AddItem(in)
						return nil
					})
				},
			},
			{
				Name:      "edit-item",
				Usage:     "replace an item's name, price and quantity",
				ArgsUsage: "ID ITEM_ID NAME:PRICE[:QTY]",
				Action: func(c *cli.Context) error {
					id, err := argID(c, 0)
					if err != nil {
						return a.fail("update item", err)
					}
					itemID, err := argID(c, 1)
					if err != nil {
						return a.fail("update item", err)
					}
					in, err := parseItem(c.Args().Get(2))
					if err != nil {
						return a.fail("update item", err)
					}
					return a.editItems(c, "update item", id, func(r *domain.Receipt, d *domain.ReceiptDraft) error {
						i, err := itemIndex(r, itemID)
						if err != nil {
							return err
						}
						d.UpdateItem(i, in)
						return nil
					})
				},
			},
			{
				Name:      "remove-item",
				Usage:     "remove an item from a receipt",
				ArgsUsage: "ID ITEM_ID",
				Action: func(c *cli.Context) error {
					id, err := argID(c, 0)
					if err != nil {
						return a.fail("delete item", err)
					}
					itemID, err := argID(c, 1)
					if err != nil {
						return a.fail("delete item", err)
					}
					return a.editItems(c, "delete item", id, func(r *domain.Receipt, d *domain.ReceiptDraft) error {
						i, err := itemIndex(r, itemID)
						if err != nil {
							return err
						}
						d.RemoveItem(i)
						return nil
					})
				},
			},
			{
				Name:      "attach",
				Usage:     "attach or replace a receipt's image",
				ArgsUsage: "ID FILE",
				Action:    a.attach,
			},
			{
				Name:      "detach",
				Usage:     "remove a receipt's image",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					id, err := argID(c, 0)
					if err != nil {
						return a.fail("remove image", err)
					}
					r, err := a.loadReceipt(c, id)
					if err != nil {
						return a.fail("remove image", err)
					}
					if r.ImageURL == "" {
						a.info("Receipt #%d has no image", id)
						return nil
					}
					if _, err := a.API.RemoveAttachment(c.Context, id, r.ImageURL); err != nil {
						return a.fail("remove image", err)
					}
					a.success("Image removed")
					return nil
				},
			},
		},
	}
}

func (a *App) listReceipts(c *cli.Context) error {
	r, err := parseRange(c)
	if err != nil {
		return a.fail("load receipts", err)
	}
	st := a.listState(c)
	page, err := a.API.ListReceipts(c.Context, domain.ReceiptFilter{
		ListParams:   st.Params(),
		Category:     c.String("category"),
		MerchantName: c.String("merchant"),
		Range:        r,
	})
	if err != nil {
		return a.fail("load receipts", err)
	}
	a.printReceipts(page, st)
	return nil
}

func (a *App) addReceipt(c *cli.Context) error {
	d, err := parseDate(c.String("date"))
	if err != nil {
		return a.fail("save receipt", err)
	}
	draft := domain.NewReceiptDraft(d)
	draft.MerchantName = c.String("merchant")
	draft.Category = domain.ExpenseCategory(c.String("category"))
	draft.Location = c.String("location")
	draft.Currency = a.Currency.Code()
	if code := c.String("currency"); code != "" {
		draft.Currency = domain.CurrencyCode(strings.ToUpper(code))
	}
	for _, raw := range c.StringSlice("item") {
		in, err := parseItem(raw)
		if err != nil {
			return a.fail("save receipt", err)
		}
		draft.AddItem(in)
	}
	if c.IsSet("total") {
		draft.SetTotal(c.Float64("total"))
	}

	if path := c.String("image"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return a.fail("upload image", err)
		}
		defer f.Close()
		up, err := a.API.UploadFile(c.Context, filepath.Base(path), f)
		if err != nil {
			return a.fail("upload image", err)
		}
		draft.ImageURL = up.URL
	}

	r, err := a.API.SubmitDraft(c.Context, draft)
	if err != nil {
		return a.fail("save receipt", err)
	}
	a.savedReceipt(r, draft)
	return nil
}

func (a *App) savedReceipt(r *domain.Receipt, draft *domain.ReceiptDraft) {
	if r == nil {
		a.success("Receipt saved: %s", a.money(draft.TotalAmount))
		return
	}
	a.success("Receipt #%d saved: %s", r.ID, a.money(r.TotalAmount))
}

// loadReceipt fetches a receipt. A null answer counts as not found.
func (a *App) loadReceipt(c *cli.Context, id int64) (*domain.Receipt, error) {
	r, err := a.API.GetReceipt(c.Context, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &domain.ErrNotFound{Resource: "receipt", ID: strconv.FormatInt(id, 10)}
	}
	return r, nil
}

func itemIndex(r *domain.Receipt, itemID int64) (int, error) {
	for i := range r.Items {
		if r.Items[i].ID == itemID {
			return i, nil
		}
	}
	return -1, &domain.ErrNotFound{Resource: "item", ID: strconv.FormatInt(itemID, 10)}
}

// editItems applies edit to the receipt's items and saves the whole
// receipt back, so total_amount always matches the items.
func (a *App) editItems(c *cli.Context, action string, id int64, edit func(*domain.Receipt, *domain.ReceiptDraft) error) error {
	r, err := a.loadReceipt(c, id)
	if err != nil {
		return a.fail(action, err)
	}
	draft := domain.DraftFromReceipt(r)
	if err := edit(r, draft); err != nil {
		return a.fail(action, err)
	}
	updated, err := a.API.UpdateReceipt(c.Context, id, draft.ToUpdate())
	if err != nil {
		return a.fail(action, err)
	}
	total := draft.TotalAmount
	if updated != nil {
		total = updated.TotalAmount
	}
	a.success("Receipt #%d updated: %d items, %s", id, len(draft.Items), a.money(total))
	return nil
}

func (a *App) attach(c *cli.Context) error {
	id, err := argID(c, 0)
	if err != nil {
		return a.fail("attach image", err)
	}
	path := c.Args().Get(1)
	f, err := os.Open(path)
	if err != nil {
		return a.fail("attach image", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return a.fail("attach image", err)
	}

	current, err := a.loadReceipt(c, id)
	if err != nil {
		return a.fail("attach image", err)
	}
	r, err := a.API.ReplaceAttachment(c.Context, id, current.ImageURL, filepath.Base(path), f)
	if err != nil && r == nil {
		return a.fail("attach image", err)
	}
	if err != nil {
		a.info("Image attached, but the old file could not be deleted")
		return nil
	}
	a.success("Image attached (%s)", humanizeBytes(info.Size()))
	return nil
}
