package domain_test

import (
	"testing"

	"github.com/boddenberg/spendlog/internal/domain"
)

func TestDraft_CoffeeTotal(t *testing.T) {
	d := domain.NewReceiptDraft(domain.NewDate(2024, 5, 1))
	d.MerchantName = "Cafe"
	d.AddItem(domain.ItemInput{Name: "Coffee", Price: 3.5, Quantity: 2})

	payload := d.ToCreate()
	if payload.TotalAmount == nil {
		t.Fatal("expected total_amount to be set")
	}
	if *payload.TotalAmount != 7.0 {
		t.Errorf("expected total 7.0, got %v", *payload.TotalAmount)
	}
}

func TestDraft_RecomputesOnEveryItemEdit(t *testing.T) {
	d := domain.NewReceiptDraft(domain.Today())
	d.AddItem(domain.ItemInput{Name: "Bread", Price: 1.2, Quantity: 1})
	d.AddItem(domain.ItemInput{Name: "Milk", Price: 0.9, Quantity: 3})

	if d.TotalAmount != 3.9 {
		t.Fatalf("expected 3.9, got %v", d.TotalAmount)
	}

	d.SetItemQuantity(0, 2)
	if d.TotalAmount != 5.1 {
		t.Errorf("after quantity change expected 5.1, got %v", d.TotalAmount)
	}

	d.SetItemPrice(1, 1)
	if d.TotalAmount != 5.4 {
		t.Errorf("after price change expected 5.4, got %v", d.TotalAmount)
	}

	d.RemoveItem(0)
	if d.TotalAmount != 3 {
		t.Errorf("after removal expected 3, got %v", d.TotalAmount)
	}

	d.UpdateItem(0, domain.ItemInput{Name: "Juice", Price: 2.25, Quantity: 2})
	if d.TotalAmount != 4.5 {
		t.Errorf("after update expected 4.5, got %v", d.TotalAmount)
	}
}

func TestDraft_RenameKeepsTotal(t *testing.T) {
	d := domain.NewReceiptDraft(domain.Today())
	d.AddItem(domain.ItemInput{Name: "Tea", Price: 2, Quantity: 1})
	d.SetTotal(10)
	d.RenameItem(0, "Green tea")

	if d.TotalAmount != 10 {
		t.Errorf("expected manual total to survive rename, got %v", d.TotalAmount)
	}
}

func TestDraft_OutOfRangeIndexIsIgnored(t *testing.T) {
	d := domain.NewReceiptDraft(domain.Today())
	d.AddItem(domain.ItemInput{Name: "Tea", Price: 2, Quantity: 1})

	d.RemoveItem(5)
	d.SetItemPrice(-1, 9)

	if len(d.Items) != 1 || d.TotalAmount != 2 {
		t.Errorf("expected draft unchanged, got %d items total %v", len(d.Items), d.TotalAmount)
	}
}

func TestDraftFromPending(t *testing.T) {
	pending := domain.Item{ID: 42, Name: "Batteries", Quantity: 4}
	d := domain.DraftFromPending(pending, domain.NewDate(2024, 6, 2))

	if len(d.Items) != 1 || d.Items[0].Name != "Batteries" || d.Items[0].Quantity != 4 {
		t.Fatalf("unexpected items %+v", d.Items)
	}
	if len(d.PendingItemIDs) != 1 || d.PendingItemIDs[0] != 42 {
		t.Errorf("expected pending id 42 attached, got %v", d.PendingItemIDs)
	}

	d.SetItemPrice(0, 1.5)
	payload := d.ToCreate()
	if *payload.TotalAmount != 6 {
		t.Errorf("expected total 6, got %v", *payload.TotalAmount)
	}
	if payload.PendingItemIDs[0] != 42 {
		t.Error("expected pending id in create payload")
	}
}

func TestReceiptCreate_NormalizeDefaults(t *testing.T) {
	in := domain.ReceiptCreate{
		MerchantName: "  Monoprix ",
		Date:         domain.NewDate(2024, 1, 15),
		Items:        []domain.ItemInput{{Name: "Coffee", Price: 3.5, Quantity: 2}},
	}
	if err := in.Normalize(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if in.MerchantName != "Monoprix" {
		t.Errorf("expected trimmed merchant, got %q", in.MerchantName)
	}
	if in.Currency != domain.CurrencyTND {
		t.Errorf("expected default currency TND, got %s", in.Currency)
	}
	if in.Category != domain.CategoryUncategorized {
		t.Errorf("expected Uncategorized, got %s", in.Category)
	}
	if *in.TotalAmount != 7 {
		t.Errorf("expected total 7, got %v", *in.TotalAmount)
	}
}

func TestReceiptCreate_NormalizeRejects(t *testing.T) {
	cases := map[string]domain.ReceiptCreate{
		"missing merchant": {Date: domain.Today()},
		"missing date":     {MerchantName: "x"},
		"bad currency":     {MerchantName: "x", Date: domain.Today(), Currency: "GBP"},
		"bad category":     {MerchantName: "x", Date: domain.Today(), Category: "Pets"},
		"bad item":         {MerchantName: "x", Date: domain.Today(), Items: []domain.ItemInput{{Name: "a", Price: 1, Quantity: 0}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			err := in.Normalize()
			var verr *domain.ErrValidation
			if !asValidation(err, &verr) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}
