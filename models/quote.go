package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type QuoteItem struct {
	ItemID    string  `json:"itemId"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Total     float64 `json:"total"`
}

// MenuMontajeEntry is one menu course or room set-up (montaje) line attached
// to a quote. Details carries presentation data the engine does not inspect.
type MenuMontajeEntry struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Details     json.RawMessage `json:"details,omitempty"`
}

// QuoteFields are the live, versioned fields of a quote.
type QuoteFields struct {
	Code               string             `json:"code"`
	CompanyID          string             `json:"companyId"`
	ManagerID          string             `json:"managerId"`
	Items              []QuoteItem        `json:"items"`
	Discount           float64            `json:"discount"`
	Subtotal           float64            `json:"subtotal"`
	Total              float64            `json:"total"`
	Notes              string             `json:"notes"`
	MenuMontaje        []MenuMontajeEntry `json:"menuMontaje"`
	MenuMontajeVersion int                `json:"menuMontajeVersion"`
}

// QuoteSnapshot is an immutable copy of the quote fields at a prior save.
type QuoteSnapshot struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"savedAt"`
	QuoteFields
}

type MenuMontajeSnapshot struct {
	Version int                `json:"version"`
	SavedAt time.Time          `json:"savedAt"`
	Entries []MenuMontajeEntry `json:"entries"`
}

// Quote is attached to an Event. Version is the head pointer into Versions;
// MenuMontajeVersion plays the same role for MenuMontajeVersions.
type Quote struct {
	QuoteFields
	Version             int                   `json:"version"`
	Versions            []QuoteSnapshot       `json:"versions"`
	MenuMontajeVersions []MenuMontajeSnapshot `json:"menuMontajeVersions"`
}

func (q *Quote) normalize() {
	if q.Items == nil {
		q.Items = []QuoteItem{}
	}
	if q.MenuMontaje == nil {
		q.MenuMontaje = []MenuMontajeEntry{}
	}
	if q.Versions == nil {
		q.Versions = []QuoteSnapshot{}
	}
	if q.MenuMontajeVersions == nil {
		q.MenuMontajeVersions = []MenuMontajeSnapshot{}
	}
	for i := range q.Versions {
		q.Versions[i].QuoteFields = q.Versions[i].QuoteFields.clone()
	}
	for i := range q.MenuMontajeVersions {
		q.MenuMontajeVersions[i].Entries = cloneEntries(q.MenuMontajeVersions[i].Entries)
	}
}

// ComputeTotals recalculates line totals, subtotal and total with exact
// decimal arithmetic. The total never goes below zero.
func (f *QuoteFields) ComputeTotals() {
	subtotal := decimal.Zero
	for i, it := range f.Items {
		line := decimal.NewFromFloat(it.Quantity).Mul(decimal.NewFromFloat(it.UnitPrice)).Round(2)
		f.Items[i].Total = line.InexactFloat64()
		subtotal = subtotal.Add(line)
	}
	total := subtotal.Sub(decimal.NewFromFloat(f.Discount))
	if total.IsNegative() {
		total = decimal.Zero
	}
	f.Subtotal = subtotal.Round(2).InexactFloat64()
	f.Total = total.Round(2).InexactFloat64()
}

func (f QuoteFields) clone() QuoteFields {
	out := f
	out.Items = append([]QuoteItem{}, f.Items...)
	out.MenuMontaje = cloneEntries(f.MenuMontaje)
	return out
}

func cloneEntries(in []MenuMontajeEntry) []MenuMontajeEntry {
	out := make([]MenuMontajeEntry, len(in))
	for i, e := range in {
		out[i] = e
		if e.Details != nil {
			out[i].Details = append(json.RawMessage{}, e.Details...)
		}
	}
	return out
}

func sameJSON(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ab) == string(bb)
}
