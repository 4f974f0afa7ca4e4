package domain

// ReceiptDraft is a receipt being edited before submission.
// Every change to an item's price or quantity, and every added or
// removed item, recomputes TotalAmount from the items.
type ReceiptDraft struct {
	MerchantName   string
	Date           Date
	Currency       CurrencyCode
	Category       ExpenseCategory
	Location       string
	ImageURL       string
	TotalAmount    float64
	Items          []ItemInput
	PendingItemIDs []int64
}

// NewReceiptDraft starts an empty draft dated d.
func NewReceiptDraft(d Date) *ReceiptDraft {
	return &ReceiptDraft{
		Date:     d,
		Currency: DefaultCurrency,
		Category: CategoryUncategorized,
	}
}

// DraftFromReceipt loads an existing receipt for editing.
func DraftFromReceipt(r *Receipt) *ReceiptDraft {
	d := &ReceiptDraft{
		MerchantName: r.MerchantName,
		Date:         r.Date,
		Currency:     r.Currency,
		Category:     r.Category,
		Location:     r.Location,
		ImageURL:     r.ImageURL,
		TotalAmount:  r.TotalAmount,
		Items:        make([]ItemInput, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		d.Items = append(d.Items, it.Input())
	}
	return d
}

// DraftFromPending prepares the payment of a to-buy entry: the pending
// item becomes the only line (price still unknown) and its id is attached
// so the backend removes it from the list once the receipt exists.
func DraftFromPending(p Item, d Date) *ReceiptDraft {
	draft := NewReceiptDraft(d)
	draft.AddItem(ItemInput{Name: p.Name, Quantity: p.Quantity})
	draft.PendingItemIDs = []int64{p.ID}
	return draft
}

func (d *ReceiptDraft) recompute() {
	d.TotalAmount = ItemsTotal(d.Items)
}

// AddItem appends an item and recomputes the total.
func (d *ReceiptDraft) AddItem(in ItemInput) {
	d.Items = append(d.Items, in)
	d.recompute()
}

// RemoveItem drops the item at index i and recomputes the total.
func (d *ReceiptDraft) RemoveItem(i int) {
	if i < 0 || i >= len(d.Items) {
		return
	}
	d.Items = append(d.Items[:i], d.Items[i+1:]...)
	d.recompute()
}

// SetItemPrice changes the unit price of item i and recomputes the total.
func (d *ReceiptDraft) SetItemPrice(i int, price float64) {
	if i < 0 || i >= len(d.Items) {
		return
	}
	d.Items[i].Price = price
	d.recompute()
}

// SetItemQuantity changes the quantity of item i and recomputes the total.
func (d *ReceiptDraft) SetItemQuantity(i int, qty int) {
	if i < 0 || i >= len(d.Items) {
		return
	}
	d.Items[i].Quantity = qty
	d.recompute()
}

// UpdateItem replaces item i and recomputes the total.
func (d *ReceiptDraft) UpdateItem(i int, in ItemInput) {
	if i < 0 || i >= len(d.Items) {
		return
	}
	d.Items[i] = in
	d.recompute()
}

// RenameItem changes the name of item i. The total is unaffected.
func (d *ReceiptDraft) RenameItem(i int, name string) {
	if i < 0 || i >= len(d.Items) {
		return
	}
	d.Items[i].Name = name
}

// SetTotal overrides the computed total until the next item edit.
func (d *ReceiptDraft) SetTotal(v float64) {
	d.TotalAmount = v
}

// ToCreate renders the draft as a POST /receipts payload.
func (d *ReceiptDraft) ToCreate() *ReceiptCreate {
	total := d.TotalAmount
	items := make([]ItemInput, len(d.Items))
	copy(items, d.Items)
	return &ReceiptCreate{
		MerchantName:   d.MerchantName,
		Date:           d.Date,
		TotalAmount:    &total,
		Currency:       d.Currency,
		Category:       d.Category,
		Location:       d.Location,
		ImageURL:       d.ImageURL,
		Items:          items,
		PendingItemIDs: d.PendingItemIDs,
	}
}

// ToUpdate renders the draft as a full PUT /receipts/{id} payload.
func (d *ReceiptDraft) ToUpdate() *ReceiptUpdate {
	c := d.ToCreate()
	return &ReceiptUpdate{
		MerchantName: &c.MerchantName,
		Date:         &c.Date,
		TotalAmount:  c.TotalAmount,
		Currency:     &c.Currency,
		Category:     &c.Category,
		Location:     &c.Location,
		ImageURL:     &c.ImageURL,
		Items:        &c.Items,
	}
}
