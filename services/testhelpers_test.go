package services

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"venue-backend/models"
)

// newTestDB opens a migrated file database. One connection makes
// transactions queue the way row locks do on a server database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "venue.db")
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.Tables()...))
	return db
}

func newTestDocumentService(t *testing.T) (*DocumentService, *gorm.DB) {
	db := newTestDB(t)
	svc := NewDocumentService(db, zap.NewNop(), "COT")
	svc.now = func() time.Time { return testNow }
	return svc, db
}

var testNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func quoteFields(code string, qty, price, discount float64) models.QuoteFields {
	f := models.QuoteFields{
		Code:      code,
		CompanyID: "c1",
		ManagerID: "m1",
		Items:     []models.QuoteItem{{ItemID: "bev-1", Name: "Coffee break", Quantity: qty, UnitPrice: price}},
		Discount:  discount,
		Notes:     "incluye montaje",
	}
	f.ComputeTotals()
	return f
}

// sampleDocument is a clean document: unique well formed codes, consistent
// version heads, normalized names and a newest-first change log.
func sampleDocument() models.Document {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	due := at.Add(48 * time.Hour)

	q1 := &models.Quote{}
	q1.SaveFields(quoteFields("COT-001", 40, 85.5, 0), false, at)
	q1.SaveFields(quoteFields("COT-001", 45, 85.5, 100), true, at.Add(time.Hour))

	q2 := &models.Quote{}
	q2.SaveMenuMontaje([]models.MenuMontajeEntry{
		{ID: "mm-1", Kind: "menu", Title: "Desayuno continental", Quantity: 30, Details: json.RawMessage(`{"courses":3}`)},
		{ID: "mm-2", Kind: "montaje", Title: "Imperial", Quantity: 1},
	}, false, at)
	q2.SaveFields(quoteFields("COT-002", 30, 120, 0), false, at.Add(2*time.Hour))

	doc := models.Document{
		Rooms: []string{"Salon A", "Salon B", "Terraza"},
		Staff: map[string]models.StaffMember{
			"s1": {ID: "s1", Name: "Ana", Username: "ana", FullName: "Ana Lopez", Active: true, MonthlyTargets: map[string]float64{"2026-05": 120000}},
			"s2": {ID: "s2", Name: "Luis", Username: "luis", FullName: "Luis Diaz"},
		},
		Companies: map[string]models.Company{
			"c1": {ID: "c1", Name: "Acme", LegalName: "Acme SA de CV", TaxID: "ACM010101AAA", Email: "events@acme.test",
				Managers: []models.Manager{{ID: "m1", Name: "Rosa", Contact: "555-0101"}, {ID: "m2", Name: "Jorge", Contact: "555-0102"}}},
			"c2": {ID: "c2", Name: "Globex"},
		},
		CatalogItems: map[string]models.CatalogItem{
			"bev-1":  {ID: "bev-1", Name: "Coffee break", Price: 85.5, Category: "Bebidas", Subcategory: "Café", QuantityMode: models.QuantityPerPax},
			"bev-2":  {ID: "bev-2", Name: "Agua", Price: 20, Category: "Bebidas", QuantityMode: models.QuantityPerUnit},
			"food-1": {ID: "food-1", Name: "Desayuno", Price: 120, Category: "Alimentos", Subcategory: "Desayunos", QuantityMode: models.QuantityPerPax},
			"av-1":   {ID: "av-1", Name: "Proyector", Price: 900, QuantityMode: models.QuantityFixed},
		},
		Events: []models.Event{
			{ID: "e1", GroupID: "g1", Name: "Congreso Acme", Room: "Salon A", Date: "2026-05-10", StartTime: "09:00", EndTime: "18:00",
				Status: models.EventConfirmed, StaffID: "s1", Pax: 45, Quote: q1},
			{ID: "e2", GroupID: "g1", Name: "Congreso Acme dia 2", Room: "Salon A", Date: "2026-05-11", StartTime: "09:00", EndTime: "14:00",
				Status: models.EventConfirmed, StaffID: "s1", Pax: 40},
			{ID: "e3", Name: "Desayuno Globex", Room: "Terraza", Date: "2026-05-12", StartTime: "08:00", EndTime: "10:00",
				Status: models.EventTentative, StaffID: "s2", Pax: 30, Notes: "vegetarian options", Quote: q2},
			{ID: "e4", Name: "Mantenimiento", Room: "Salon B", Date: "2026-05-13", StartTime: "00:00", EndTime: "23:59",
				Status: models.EventBlocked},
		},
		ChangeLog: map[string][]models.ChangeEntry{
			"g1": {
				{Timestamp: at.Add(time.Hour), ActorID: "s1", ActorName: "Ana", Description: "quote v2"},
				{Timestamp: at, ActorID: "s1", ActorName: "Ana", Description: "created"},
			},
		},
		Reminders: map[string][]models.Reminder{
			"e3": {
				{ID: "r1", DueAt: &due, Message: "confirm pax", CreatedBy: "s2"},
				{ID: "r2", Message: "send menu", Done: true, CreatedBy: "s2"},
			},
		},
		Aux: map[string]json.RawMessage{
			"disabledRooms":      json.RawMessage(`["Salon C"]`),
			"globalTargets":      json.RawMessage(`{"2026-05":500000}`),
			"checklistTemplates": json.RawMessage(`[{"name":"boda","items":["flores","dj"]}]`),
		},
	}
	doc.Normalize()
	return doc
}

func docJSON(t *testing.T, doc models.Document) string {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(raw)
}

func eventByID(t *testing.T, doc models.Document, id string) models.Event {
	t.Helper()
	for _, e := range doc.Events {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("event %s not found", id)
	return models.Event{}
}
