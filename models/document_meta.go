package models

import "time"

// DocumentMeta is the single row that marks the relational projection as
// populated. Revision increases by one with every committed reconciliation.
type DocumentMeta struct {
	ID        uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Revision  int64     `gorm:"column:revision;not null;default:0" json:"revision"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (DocumentMeta) TableName() string { return "document_meta" }

// DocumentMetaID is the primary key of the only DocumentMeta row.
const DocumentMetaID uint = 1
