package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venue-backend/metrics"
	"venue-backend/models"
)

const insertBatchSize = 200

func cloneDocument(doc models.Document) (models.Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return models.Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var out models.Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	out.Normalize()
	return out, nil
}

// prepare validates doc and fills the defaults that do not need the store.
func (s *DocumentService) prepare(doc *models.Document) error {
	seenRooms := map[string]bool{}
	rooms := make([]string, 0, len(doc.Rooms))
	for _, r := range doc.Rooms {
		name := strings.TrimSpace(r)
		key := CollationKey(name)
		if name == "" || seenRooms[key] {
			continue
		}
		seenRooms[key] = true
		rooms = append(rooms, name)
	}
	if len(rooms) != len(doc.Rooms) {
		s.Log.Warn("dropped empty or duplicate room names", zap.Int("received", len(doc.Rooms)), zap.Int("kept", len(rooms)))
	}
	doc.Rooms = rooms

	for key, m := range doc.Staff {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: staff member with empty id", ErrInvalidDocument)
		}
		m.ID = key
		hashed, err := hashCredential(m.Credentials)
		if err != nil {
			return fmt.Errorf("hash credentials of staff %s: %w", key, err)
		}
		m.Credentials = hashed
		doc.Staff[key] = m
	}
	for key, c := range doc.Companies {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: company with empty id", ErrInvalidDocument)
		}
		c.ID = key
		doc.Companies[key] = c
	}
	for key, it := range doc.CatalogItems {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: catalog item with empty id", ErrInvalidDocument)
		}
		it.ID = key
		switch it.QuantityMode {
		case "":
			it.QuantityMode = models.QuantityPerUnit
		case models.QuantityFixed, models.QuantityPerPax, models.QuantityPerUnit:
		default:
			return fmt.Errorf("%w: catalog item %s has quantity mode %q", ErrInvalidDocument, key, it.QuantityMode)
		}
		doc.CatalogItems[key] = it
	}
	for i := range doc.Events {
		e := &doc.Events[i]
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("%w: event at position %d has no id", ErrInvalidDocument, i)
		}
		if e.Status == "" {
			e.Status = models.EventTentative
		}
		if !e.Status.Valid() {
			return fmt.Errorf("%w: event %s has status %q", ErrInvalidDocument, e.ID, e.Status)
		}
		if e.Quote != nil {
			if err := checkHistories(e.ID, e.Quote); err != nil {
				return err
			}
		}
	}
	// An empty list is stored as no rows, so the key is dropped here to keep
	// the written document equal to the one read back.
	for key, entries := range doc.ChangeLog {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: change log under empty reservation key", ErrInvalidDocument)
		}
		if len(entries) == 0 {
			delete(doc.ChangeLog, key)
		}
	}
	for key, entries := range doc.Reminders {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: reminders under empty reservation key", ErrInvalidDocument)
		}
		if len(entries) == 0 {
			delete(doc.Reminders, key)
		}
	}
	return nil
}

// checkHistories rejects snapshot lists with non-positive or repeated
// versions; each version is one row keyed by (event, version).
func checkHistories(eventID string, q *models.Quote) error {
	seen := map[int]bool{}
	for _, v := range q.Versions {
		if v.Version <= 0 || seen[v.Version] {
			return fmt.Errorf("%w: quote of event %s has invalid or repeated version %d", ErrInvalidDocument, eventID, v.Version)
		}
		seen[v.Version] = true
	}
	seen = map[int]bool{}
	for _, v := range q.MenuMontajeVersions {
		if v.Version <= 0 || seen[v.Version] {
			return fmt.Errorf("%w: menu/montaje of event %s has invalid or repeated version %d", ErrInvalidDocument, eventID, v.Version)
		}
		seen[v.Version] = true
	}
	return nil
}

func (s *DocumentService) reconcile(tx *gorm.DB, doc *models.Document) (*SaveResult, error) {
	meta, err := lockMeta(tx)
	if err != nil {
		return nil, err
	}

	reassigned, err := s.assignQuoteCodes(tx, doc)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range doc.Events {
		if q := doc.Events[i].Quote; q != nil && q.EnsureHead(now) {
			s.Log.Debug("quote head synthesized", zap.String("event_id", doc.Events[i].ID), zap.Int("version", q.Version))
		}
	}

	p, err := project(doc)
	if err != nil {
		return nil, err
	}
	if err := p.replace(tx); err != nil {
		return nil, err
	}

	revision := meta.Revision + 1
	err = tx.Model(&models.DocumentMeta{}).
		Where("id = ?", models.DocumentMetaID).
		Updates(map[string]interface{}{"revision": revision, "updated_at": now}).Error
	if err != nil {
		return nil, fmt.Errorf("bump document revision: %w", err)
	}
	return &SaveResult{Revision: revision, UpdatedAt: now, ReassignedCodes: reassigned}, nil
}

// lockMeta takes the row lock that serializes concurrent reconciliations.
func lockMeta(tx *gorm.DB) (*models.DocumentMeta, error) {
	seed := models.DocumentMeta{ID: models.DocumentMetaID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("create document meta: %w", err)
	}
	var meta models.DocumentMeta
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&meta, models.DocumentMetaID).Error; err != nil {
		return nil, fmt.Errorf("lock document meta: %w", err)
	}
	return &meta, nil
}

// assignQuoteCodes keeps every well-formed code that no earlier quote in this
// pass claimed, and gives the remaining quotes fresh numbers from the
// allocator. It returns event id -> new code for the quotes it changed.
func (s *DocumentService) assignQuoteCodes(tx *gorm.DB, doc *models.Document) (map[string]string, error) {
	claimed := map[int64]bool{}
	var (
		highest int64
		pending []int
	)
	for i := range doc.Events {
		q := doc.Events[i].Quote
		if q == nil {
			continue
		}
		q.Code = strings.TrimSpace(q.Code)
		n, ok := ParseCode(s.QuoteScope, q.Code)
		if !ok || claimed[n] {
			pending = append(pending, i)
			continue
		}
		claimed[n] = true
		if n > highest {
			highest = n
		}
	}

	if err := EnsureAtLeastTx(tx, s.QuoteScope, highest); err != nil {
		return nil, err
	}

	reassigned := make(map[string]string, len(pending))
	for _, i := range pending {
		e := &doc.Events[i]
		n, err := ReserveNextTx(tx, s.QuoteScope)
		if err != nil {
			return nil, err
		}
		code := FormatCode(s.QuoteScope, n)
		s.Log.Info("quote number assigned",
			zap.String("event_id", e.ID),
			zap.String("previous", e.Quote.Code),
			zap.String("code", code),
		)
		e.Quote.Code = code
		reassigned[e.ID] = code
		metrics.QuoteCodesReassigned.Inc()
	}
	return reassigned, nil
}

// projection is the relational image of one document.
type projection struct {
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
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func jsonColumn(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func project(doc *models.Document) (*projection, error) {
	p := &projection{}

	for i, name := range doc.Rooms {
		p.rooms = append(p.rooms, models.RoomRecord{ID: uint(i + 1), Name: name, Position: i})
	}

	for _, id := range sortedKeys(doc.Staff) {
		m := doc.Staff[id]
		targets, err := jsonColumn(m.MonthlyTargets)
		if err != nil {
			return nil, fmt.Errorf("%w: staff %s targets: %v", ErrInvalidDocument, id, err)
		}
		p.staff = append(p.staff, models.StaffRecord{
			ID:             id,
			Name:           m.Name,
			Username:       m.Username,
			FullName:       m.FullName,
			Credentials:    m.Credentials,
			Active:         m.Active,
			MonthlyTargets: targets,
		})
	}

	for _, id := range sortedKeys(doc.Companies) {
		c := doc.Companies[id]
		p.companies = append(p.companies, models.CompanyRecord{
			ID:        id,
			Name:      c.Name,
			LegalName: c.LegalName,
			TaxID:     c.TaxID,
			Email:     c.Email,
			Phone:     c.Phone,
			Address:   c.Address,
			Notes:     c.Notes,
		})
		for pos, m := range c.Managers {
			p.managers = append(p.managers, models.CompanyManagerRecord{
				CompanyID: id,
				ManagerID: m.ID,
				Name:      m.Name,
				Contact:   m.Contact,
				Position:  pos,
			})
		}
	}

	tax := newTaxonomy()
	for _, id := range sortedKeys(doc.CatalogItems) {
		it := doc.CatalogItems[id]
		catID, subID := tax.assign(it.Category, it.Subcategory)
		p.items = append(p.items, models.CatalogItemRecord{
			ID:            id,
			Name:          it.Name,
			Price:         it.Price,
			CategoryID:    catID,
			SubcategoryID: subID,
			QuantityMode:  it.QuantityMode,
		})
	}
	p.categories = tax.categories
	p.subcategories = tax.subcategories

	for pos, e := range doc.Events {
		p.events = append(p.events, models.EventRecord{
			ID:        e.ID,
			GroupID:   strings.TrimSpace(e.GroupID),
			Name:      e.Name,
			Room:      e.Room,
			Date:      e.Date,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
			Status:    string(e.Status),
			StaffID:   e.StaffID,
			Pax:       e.Pax,
			Notes:     e.Notes,
			Position:  pos,
		})
		if e.Quote != nil {
			if err := p.addQuote(e.ID, e.Quote); err != nil {
				return nil, err
			}
		}
	}

	for _, key := range sortedKeys(doc.ChangeLog) {
		for pos, c := range doc.ChangeLog[key] {
			p.changeLog = append(p.changeLog, models.ChangeLogRecord{
				ReservationKey: key,
				Timestamp:      c.Timestamp,
				ActorID:        c.ActorID,
				ActorName:      c.ActorName,
				Description:    c.Description,
				Position:       pos,
			})
		}
	}

	for _, key := range sortedKeys(doc.Reminders) {
		for pos, r := range doc.Reminders[key] {
			p.reminders = append(p.reminders, models.ReminderRecord{
				ReservationKey: key,
				ReminderID:     r.ID,
				DueAt:          r.DueAt,
				Message:        r.Message,
				Done:           r.Done,
				CreatedBy:      r.CreatedBy,
				Position:       pos,
			})
		}
	}

	for _, key := range sortedKeys(doc.Aux) {
		value := doc.Aux[key]
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		p.aux = append(p.aux, models.AuxBlobRecord{Key: key, Value: datatypes.JSON(value)})
	}
	return p, nil
}

func (p *projection) addQuote(eventID string, q *models.Quote) error {
	menu, err := jsonColumn(q.MenuMontaje)
	if err != nil {
		return fmt.Errorf("%w: quote %s menu/montaje: %v", ErrInvalidDocument, eventID, err)
	}
	p.quotes = append(p.quotes, models.QuoteRecord{
		EventID:            eventID,
		Code:               q.Code,
		CompanyID:          q.CompanyID,
		ManagerID:          q.ManagerID,
		Discount:           q.Discount,
		Subtotal:           q.Subtotal,
		Total:              q.Total,
		Notes:              q.Notes,
		Version:            q.Version,
		MenuMontajeVersion: q.MenuMontajeVersion,
		MenuMontaje:        menu,
	})
	for pos, it := range q.Items {
		p.quoteItems = append(p.quoteItems, models.QuoteItemRecord{
			EventID:   eventID,
			Position:  pos,
			ItemID:    it.ItemID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Total:     it.Total,
		})
	}
	for _, v := range q.Versions {
		payload, err := jsonColumn(v)
		if err != nil {
			return fmt.Errorf("%w: quote %s version %d: %v", ErrInvalidDocument, eventID, v.Version, err)
		}
		p.quoteVersions = append(p.quoteVersions, models.QuoteVersionRecord{
			EventID: eventID,
			Version: v.Version,
			SavedAt: v.SavedAt,
			Total:   v.Total,
			Payload: payload,
		})
	}
	for _, v := range q.MenuMontajeVersions {
		payload, err := jsonColumn(v)
		if err != nil {
			return fmt.Errorf("%w: quote %s menu/montaje version %d: %v", ErrInvalidDocument, eventID, v.Version, err)
		}
		p.menuVersions = append(p.menuVersions, models.MenuMontajeVersionRecord{
			EventID: eventID,
			Version: v.Version,
			SavedAt: v.SavedAt,
			Payload: payload,
		})
	}
	return nil
}

// replacedTables lists the reconciled tables parent -> child. Deletes walk it
// backwards.
var replacedTables = []interface{}{
	&models.RoomRecord{},
	&models.StaffRecord{},
	&models.CompanyRecord{},
	&models.CompanyManagerRecord{},
	&models.CatalogCategoryRecord{},
	&models.CatalogSubcategoryRecord{},
	&models.CatalogItemRecord{},
	&models.EventRecord{},
	&models.QuoteRecord{},
	&models.QuoteItemRecord{},
	&models.QuoteVersionRecord{},
	&models.MenuMontajeVersionRecord{},
	&models.ChangeLogRecord{},
	&models.ReminderRecord{},
	&models.AuxBlobRecord{},
}

func insertAll[T any](tx *gorm.DB, table string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Omit(clause.Associations).CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (p *projection) replace(tx *gorm.DB) error {
	all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(replacedTables) - 1; i >= 0; i-- {
		if err := all.Delete(replacedTables[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", replacedTables[i], err)
		}
	}

	steps := []func() error{
		func() error { return insertAll(tx, "rooms", p.rooms) },
		func() error { return insertAll(tx, "staff", p.staff) },
		func() error { return insertAll(tx, "companies", p.companies) },
		func() error { return insertAll(tx, "company_managers", p.managers) },
		func() error { return insertAll(tx, "catalog_categories", p.categories) },
		func() error { return insertAll(tx, "catalog_subcategories", p.subcategories) },
		func() error { return insertAll(tx, "catalog_items", p.items) },
		func() error { return insertAll(tx, "events", p.events) },
		func() error { return insertAll(tx, "quotes", p.quotes) },
		func() error { return insertAll(tx, "quote_items", p.quoteItems) },
		func() error { return insertAll(tx, "quote_versions", p.quoteVersions) },
		func() error { return insertAll(tx, "menu_montaje_versions", p.menuVersions) },
		func() error { return insertAll(tx, "change_log_entries", p.changeLog) },
		func() error { return insertAll(tx, "reminders", p.reminders) },
		func() error { return insertAll(tx, "aux_blobs", p.aux) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
