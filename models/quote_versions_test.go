package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func fields(total float64) QuoteFields {
	return QuoteFields{
		Code:  "COT-001",
		Items: []QuoteItem{{ItemID: "it-1", Name: "Coffee break", Quantity: 1, UnitPrice: total, Total: total}},
		Total: total,
	}
}

func TestSaveFieldsAppendsAndAmends(t *testing.T) {
	q := &Quote{}
	q.SaveFields(fields(100), false, t0)
	require.Len(t, q.Versions, 1)
	assert.Equal(t, 1, q.Version)

	// amend in place
	q.SaveFields(fields(120), false, t0.Add(time.Minute))
	require.Len(t, q.Versions, 1)
	assert.Equal(t, 120.0, q.Versions[0].Total)
	assert.Equal(t, t0.Add(time.Minute), q.Versions[0].SavedAt)

	// bump appends
	q.SaveFields(fields(150), true, t0.Add(2*time.Minute))
	require.Len(t, q.Versions, 2)
	assert.Equal(t, 2, q.Version)
	assert.Equal(t, 120.0, q.Versions[0].Total)
	assert.Equal(t, 150.0, q.Versions[1].Total)
}

func TestBumpUsesHighestVersion(t *testing.T) {
	q := &Quote{
		QuoteFields: fields(10),
		Version:     1,
		Versions: []QuoteSnapshot{
			{Version: 1, SavedAt: t0, QuoteFields: fields(10)},
			{Version: 4, SavedAt: t0, QuoteFields: fields(40)},
		},
	}
	q.SaveFields(fields(50), true, t0)
	assert.Equal(t, 5, q.Version)
	snap, ok := q.Snapshot(5)
	require.True(t, ok)
	assert.Equal(t, 50.0, snap.Total)
}

func TestSnapshotsAreIndependentOfLiveFields(t *testing.T) {
	q := &Quote{}
	q.SaveFields(fields(100), false, t0)
	q.Items[0].Name = "changed"
	assert.Equal(t, "Coffee break", q.Versions[0].Items[0].Name)
}

func TestEnsureHeadSynthesizesMissingHead(t *testing.T) {
	q := &Quote{QuoteFields: fields(80), Version: 2, Versions: []QuoteSnapshot{{Version: 1, SavedAt: t0, QuoteFields: fields(60)}}}
	changed := q.EnsureHead(t0.Add(time.Hour))
	assert.True(t, changed)
	require.Len(t, q.Versions, 2)
	head, ok := q.Snapshot(2)
	require.True(t, ok)
	assert.Equal(t, 80.0, head.Total)
	assert.Equal(t, t0.Add(time.Hour), head.SavedAt)
}

func TestEnsureHeadAllocatesVersion(t *testing.T) {
	q := &Quote{QuoteFields: fields(80)}
	assert.True(t, q.EnsureHead(t0))
	assert.Equal(t, 1, q.Version)
	require.Len(t, q.Versions, 1)
}

func TestEnsureHeadAmendsDivergentHeadKeepingSavedAt(t *testing.T) {
	q := &Quote{QuoteFields: fields(99), Version: 1, Versions: []QuoteSnapshot{{Version: 1, SavedAt: t0, QuoteFields: fields(60)}}}
	assert.True(t, q.EnsureHead(t0.Add(time.Hour)))
	require.Len(t, q.Versions, 1)
	assert.Equal(t, 99.0, q.Versions[0].Total)
	assert.Equal(t, t0, q.Versions[0].SavedAt)
}

func TestEnsureHeadIsNoopOnConsistentQuote(t *testing.T) {
	q := &Quote{}
	q.SaveFields(fields(100), false, t0)
	assert.False(t, q.EnsureHead(t0.Add(time.Hour)))
	assert.Equal(t, t0, q.Versions[0].SavedAt)
}

func TestSaveMenuMontajeFollowsSameRule(t *testing.T) {
	q := &Quote{}
	entries := []MenuMontajeEntry{{ID: "m1", Kind: "menu", Title: "Desayuno", Quantity: 40, Details: json.RawMessage(`{"courses":2}`)}}
	q.SaveMenuMontaje(entries, false, t0)
	assert.Equal(t, 1, q.MenuMontajeVersion)

	entries[0].Quantity = 45
	q.SaveMenuMontaje(entries, false, t0)
	require.Len(t, q.MenuMontajeVersions, 1)
	assert.Equal(t, 45, q.MenuMontajeVersions[0].Entries[0].Quantity)

	q.SaveMenuMontaje(entries, true, t0)
	assert.Equal(t, 2, q.MenuMontajeVersion)
	assert.Len(t, q.MenuMontajeVersions, 2)
	// the quote head is untouched by menu saves
	assert.Equal(t, 0, q.Version)
}

func TestSaveFieldsKeepsMenuMontaje(t *testing.T) {
	q := &Quote{}
	q.SaveMenuMontaje([]MenuMontajeEntry{{ID: "m1", Title: "Montaje imperial"}}, false, t0)
	q.SaveFields(fields(10), false, t0)
	require.Len(t, q.MenuMontaje, 1)
	assert.Equal(t, 1, q.MenuMontajeVersion)
	assert.Equal(t, 1, q.Versions[0].MenuMontajeVersion)
}

func TestLatestQuoteInGroupPrefersHighestVersion(t *testing.T) {
	day1 := &Quote{}
	day1.SaveFields(fields(100), false, t0)
	day1.SaveFields(fields(110), true, t0.Add(time.Hour))
	day1.SaveFields(fields(130), true, t0.Add(2*time.Hour))

	day2 := &Quote{}
	day2.SaveFields(fields(200), false, t0.Add(3*time.Hour))
	day2.SaveFields(fields(210), true, t0.Add(4*time.Hour))

	events := []Event{
		{ID: "e1", GroupID: "g1", Quote: day1},
		{ID: "e2", GroupID: "g1", Quote: day2},
		{ID: "e3", GroupID: "g2", Quote: &Quote{Versions: []QuoteSnapshot{{Version: 9, SavedAt: t0}}}},
	}
	snap, eventID, ok := LatestQuoteInGroup(events, "g1")
	require.True(t, ok)
	assert.Equal(t, 3, snap.Version)
	assert.Equal(t, 130.0, snap.Total)
	assert.Equal(t, "e1", eventID)
}

func TestLatestQuoteInGroupBreaksTiesBySavedAt(t *testing.T) {
	events := []Event{
		{ID: "e1", GroupID: "g1", Quote: &Quote{Versions: []QuoteSnapshot{{Version: 2, SavedAt: t0, QuoteFields: fields(1)}}}},
		{ID: "e2", GroupID: "g1", Quote: &Quote{Versions: []QuoteSnapshot{{Version: 2, SavedAt: t0.Add(time.Minute), QuoteFields: fields(2)}}}},
	}
	snap, eventID, ok := LatestQuoteInGroup(events, "g1")
	require.True(t, ok)
	assert.Equal(t, "e2", eventID)
	assert.Equal(t, 2.0, snap.Total)
}

func TestLatestInGroupUsesEventIDWithoutGroup(t *testing.T) {
	q := &Quote{}
	q.SaveMenuMontaje([]MenuMontajeEntry{{ID: "m1"}}, false, t0)
	events := []Event{{ID: "solo", Quote: q}}

	_, _, ok := LatestQuoteInGroup(events, "solo")
	assert.False(t, ok)
	snap, eventID, ok := LatestMenuMontajeInGroup(events, "solo")
	require.True(t, ok)
	assert.Equal(t, "solo", eventID)
	assert.Equal(t, 1, snap.Version)
}

func TestComputeTotals(t *testing.T) {
	f := QuoteFields{
		Items: []QuoteItem{
			{Quantity: 3, UnitPrice: 0.1},
			{Quantity: 40, UnitPrice: 85.55},
		},
		Discount: 22.3,
	}
	f.ComputeTotals()
	assert.Equal(t, 0.3, f.Items[0].Total)
	assert.Equal(t, 3422.0, f.Items[1].Total)
	assert.Equal(t, 3422.3, f.Subtotal)
	assert.Equal(t, 3400.0, f.Total)

	f.Discount = 5000
	f.ComputeTotals()
	assert.Equal(t, 0.0, f.Total)
}
