package services

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"venue-backend/models"
)

// readDocument inverts project: children are grouped under their parents and
// JSON columns decoded. A corrupt blob is replaced by a neutral value and
// logged; it never fails the whole read.
func (s *DocumentService) readDocument(tx *gorm.DB) (*models.Document, error) {
	var (
		rooms         []models.RoomRecord
		staff         []models.StaffRecord
		companies     []models.CompanyRecord
		managers      []models.CompanyManagerRecord
		categories    []models.CatalogCategoryRecord
		subcategories []models.CatalogSubcategoryRecord
		items         []models.CatalogItemRecord
		events        []models.EventRecord
		quotes        []models.QuoteRecord
		quoteItems    []models.QuoteItemRecord
		quoteVersions []models.QuoteVersionRecord
		menuVersions  []models.MenuMontajeVersionRecord
		changeLog     []models.ChangeLogRecord
		reminders     []models.ReminderRecord
		aux           []models.AuxBlobRecord
	)
	queries := []struct {
		table string
		order string
		dest  interface{}
	}{
		{"rooms", "position", &rooms},
		{"staff", "id", &staff},
		{"companies", "id", &companies},
		{"company_managers", "company_id, position", &managers},
		{"catalog_categories", "id", &categories},
		{"catalog_subcategories", "id", &subcategories},
		{"catalog_items", "id", &items},
		{"events", "position", &events},
		{"quotes", "event_id", &quotes},
		{"quote_items", "event_id, position", &quoteItems},
		{"quote_versions", "event_id, version", &quoteVersions},
		{"menu_montaje_versions", "event_id, version", &menuVersions},
		{"change_log_entries", "reservation_key, position", &changeLog},
		{"reminders", "reservation_key, position", &reminders},
		{"aux_blobs", tx.Statement.Quote("key"), &aux},
	}
	for _, q := range queries {
		if err := tx.Order(q.order).Find(q.dest).Error; err != nil {
			return nil, fmt.Errorf("read %s: %w", q.table, err)
		}
	}

	doc := models.Document{}
	doc.Normalize()

	for _, r := range rooms {
		doc.Rooms = append(doc.Rooms, r.Name)
	}

	for _, r := range staff {
		targets := map[string]float64{}
		s.decodeBlob(r.MonthlyTargets, &targets, "staff.monthly_targets", r.ID)
		if targets == nil {
			targets = map[string]float64{}
		}
		doc.Staff[r.ID] = models.StaffMember{
			ID:             r.ID,
			Name:           r.Name,
			Username:       r.Username,
			FullName:       r.FullName,
			Credentials:    r.Credentials,
			Active:         r.Active,
			MonthlyTargets: targets,
		}
	}

	managersByCompany := map[string][]models.Manager{}
	for _, m := range managers {
		managersByCompany[m.CompanyID] = append(managersByCompany[m.CompanyID], models.Manager{
			ID:      m.ManagerID,
			Name:    m.Name,
			Contact: m.Contact,
		})
	}
	for _, r := range companies {
		list := managersByCompany[r.ID]
		if list == nil {
			list = []models.Manager{}
		}
		doc.Companies[r.ID] = models.Company{
			ID:        r.ID,
			Name:      r.Name,
			LegalName: r.LegalName,
			TaxID:     r.TaxID,
			Email:     r.Email,
			Phone:     r.Phone,
			Address:   r.Address,
			Notes:     r.Notes,
			Managers:  list,
		}
	}

	categoryNames := map[uint]string{}
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}
	subcategoryNames := map[uint]string{}
	for _, c := range subcategories {
		subcategoryNames[c.ID] = c.Name
	}
	for _, r := range items {
		it := models.CatalogItem{
			ID:           r.ID,
			Name:         r.Name,
			Price:        r.Price,
			QuantityMode: r.QuantityMode,
		}
		if r.CategoryID != nil {
			it.Category = categoryNames[*r.CategoryID]
		}
		if r.SubcategoryID != nil {
			it.Subcategory = subcategoryNames[*r.SubcategoryID]
		}
		doc.CatalogItems[r.ID] = it
	}

	itemsByEvent := map[string][]models.QuoteItem{}
	for _, r := range quoteItems {
		itemsByEvent[r.EventID] = append(itemsByEvent[r.EventID], models.QuoteItem{
			ItemID:    r.ItemID,
			Name:      r.Name,
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
			Total:     r.Total,
		})
	}
	versionsByEvent := map[string][]models.QuoteSnapshot{}
	for _, r := range quoteVersions {
		var snap models.QuoteSnapshot
		s.decodeBlob(r.Payload, &snap, "quote_versions.payload", r.EventID)
		snap.Version = r.Version
		if snap.SavedAt.IsZero() {
			snap.SavedAt = r.SavedAt.UTC()
		}
		versionsByEvent[r.EventID] = append(versionsByEvent[r.EventID], snap)
	}
	menuByEvent := map[string][]models.MenuMontajeSnapshot{}
	for _, r := range menuVersions {
		var snap models.MenuMontajeSnapshot
		s.decodeBlob(r.Payload, &snap, "menu_montaje_versions.payload", r.EventID)
		snap.Version = r.Version
		if snap.SavedAt.IsZero() {
			snap.SavedAt = r.SavedAt.UTC()
		}
		menuByEvent[r.EventID] = append(menuByEvent[r.EventID], snap)
	}
	quotesByEvent := map[string]*models.Quote{}
	for _, r := range quotes {
		var menu []models.MenuMontajeEntry
		s.decodeBlob(r.MenuMontaje, &menu, "quotes.menu_montaje", r.EventID)
		q := &models.Quote{
			QuoteFields: models.QuoteFields{
				Code:               r.Code,
				CompanyID:          r.CompanyID,
				ManagerID:          r.ManagerID,
				Items:              itemsByEvent[r.EventID],
				Discount:           r.Discount,
				Subtotal:           r.Subtotal,
				Total:              r.Total,
				Notes:              r.Notes,
				MenuMontaje:        menu,
				MenuMontajeVersion: r.MenuMontajeVersion,
			},
			Version:             r.Version,
			Versions:            versionsByEvent[r.EventID],
			MenuMontajeVersions: menuByEvent[r.EventID],
		}
		quotesByEvent[r.EventID] = q
	}

	for _, r := range events {
		doc.Events = append(doc.Events, models.Event{
			ID:        r.ID,
			GroupID:   r.GroupID,
			Name:      r.Name,
			Room:      r.Room,
			Date:      r.Date,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Status:    models.EventStatus(r.Status),
			StaffID:   r.StaffID,
			Pax:       r.Pax,
			Notes:     r.Notes,
			Quote:     quotesByEvent[r.ID],
		})
	}

	for _, r := range changeLog {
		doc.ChangeLog[r.ReservationKey] = append(doc.ChangeLog[r.ReservationKey], models.ChangeEntry{
			Timestamp:   r.Timestamp.UTC(),
			ActorID:     r.ActorID,
			ActorName:   r.ActorName,
			Description: r.Description,
		})
	}
	for key, entries := range doc.ChangeLog {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
		doc.ChangeLog[key] = entries
	}

	for _, r := range reminders {
		if r.DueAt != nil {
			due := r.DueAt.UTC()
			r.DueAt = &due
		}
		doc.Reminders[r.ReservationKey] = append(doc.Reminders[r.ReservationKey], models.Reminder{
			ID:        r.ReminderID,
			DueAt:     r.DueAt,
			Message:   r.Message,
			Done:      r.Done,
			CreatedBy: r.CreatedBy,
		})
	}

	for _, r := range aux {
		if !json.Valid(r.Value) {
			s.Log.Warn("corrupt auxiliary blob replaced by null", zap.String("key", r.Key))
			doc.Aux[r.Key] = json.RawMessage("null")
			continue
		}
		doc.Aux[r.Key] = json.RawMessage(r.Value)
	}

	doc.Normalize()
	return &doc, nil
}

// decodeBlob unmarshals raw into dest. On failure dest is left at its zero
// value and a warning names the offending row.
func (s *DocumentService) decodeBlob(raw []byte, dest interface{}, column, owner string) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.Log.Warn("corrupt JSON column read as empty",
			zap.String("column", column),
			zap.String("owner", owner),
			zap.Error(err),
		)
		reset(dest)
	}
}

// reset zeroes the value dest points to after a partial unmarshal.
func reset(dest interface{}) {
	switch d := dest.(type) {
	case *map[string]float64:
		*d = map[string]float64{}
	case *[]models.MenuMontajeEntry:
		*d = nil
	case *models.QuoteSnapshot:
		*d = models.QuoteSnapshot{}
	case *models.MenuMontajeSnapshot:
		*d = models.MenuMontajeSnapshot{}
	}
}
