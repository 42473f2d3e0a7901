package models

import "time"

// DocSequence is the durable counter behind one document number scope.
type DocSequence struct {
	Scope     string    `gorm:"primaryKey;size:16" json:"scope"`
	LastValue int64     `gorm:"column:last_value;not null;default:0" json:"lastValue"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (DocSequence) TableName() string { return "doc_sequences" }

// Tables lists every relational model in parent -> child order, the order
// AutoMigrate and the reconciliation inserts use.
func Tables() []interface{} {
	return []interface{}{
		&DocumentMeta{},
		&DocSequence{},
		&RoomRecord{},
		&StaffRecord{},
		&CompanyRecord{},
		&CompanyManagerRecord{},
		&CatalogCategoryRecord{},
		&CatalogSubcategoryRecord{},
		&CatalogItemRecord{},
		&EventRecord{},
		&QuoteRecord{},
		&QuoteItemRecord{},
		&QuoteVersionRecord{},
		&MenuMontajeVersionRecord{},
		&ChangeLogRecord{},
		&ReminderRecord{},
		&AuxBlobRecord{},
	}
}
