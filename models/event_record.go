package models

import (
	"time"

	"gorm.io/datatypes"
)

type EventRecord struct {
	ID        string `gorm:"primaryKey;size:100" json:"id"`
	GroupID   string `gorm:"column:group_id;size:100;index" json:"groupId"`
	Name      string `gorm:"column:name;size:255" json:"name"`
	Room      string `gorm:"column:room;size:191;index" json:"room"`
	Date      string `gorm:"column:date;size:10;index" json:"date"`
	StartTime string `gorm:"column:start_time;size:5" json:"startTime"`
	EndTime   string `gorm:"column:end_time;size:5" json:"endTime"`
	Status    string `gorm:"column:status;size:20" json:"status"`
	StaffID   string `gorm:"column:staff_id;size:100" json:"staffId"`
	Pax       int    `gorm:"column:pax" json:"pax"`
	Notes     string `gorm:"column:notes;type:text" json:"notes"`
	Position  int    `gorm:"column:position" json:"-"`

	Quote *QuoteRecord `gorm:"foreignKey:EventID;references:ID;constraint:OnDelete:CASCADE" json:"quote,omitempty"`
}

func (EventRecord) TableName() string { return "events" }

// QuoteRecord holds the denormalized head of a quote. Code is unique across
// every quote in the store.
type QuoteRecord struct {
	EventID            string         `gorm:"primaryKey;size:100" json:"eventId"`
	Code               string         `gorm:"column:code;size:32;uniqueIndex;not null" json:"code"`
	CompanyID          string         `gorm:"column:company_id;size:100;index" json:"companyId"`
	ManagerID          string         `gorm:"column:manager_id;size:100" json:"managerId"`
	Discount           float64        `gorm:"column:discount" json:"discount"`
	Subtotal           float64        `gorm:"column:subtotal" json:"subtotal"`
	Total              float64        `gorm:"column:total" json:"total"`
	Notes              string         `gorm:"column:notes;type:text" json:"notes"`
	Version            int            `gorm:"column:version" json:"version"`
	MenuMontajeVersion int            `gorm:"column:menu_montaje_version" json:"menuMontajeVersion"`
	MenuMontaje        datatypes.JSON `gorm:"column:menu_montaje" json:"menuMontaje"`

	Items               []QuoteItemRecord          `gorm:"foreignKey:EventID;references:EventID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Versions            []QuoteVersionRecord       `gorm:"foreignKey:EventID;references:EventID;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
	MenuMontajeVersions []MenuMontajeVersionRecord `gorm:"foreignKey:EventID;references:EventID;constraint:OnDelete:CASCADE" json:"menuMontajeVersions,omitempty"`
}

func (QuoteRecord) TableName() string { return "quotes" }

type QuoteItemRecord struct {
	ID        uint    `gorm:"primaryKey" json:"-"`
	EventID   string  `gorm:"column:event_id;size:100;index;not null" json:"eventId"`
	Position  int     `gorm:"column:position" json:"position"`
	ItemID    string  `gorm:"column:item_id;size:100" json:"itemId"`
	Name      string  `gorm:"column:name;size:255" json:"name"`
	Quantity  float64 `gorm:"column:quantity" json:"quantity"`
	UnitPrice float64 `gorm:"column:unit_price" json:"unitPrice"`
	Total     float64 `gorm:"column:total" json:"total"`
}

func (QuoteItemRecord) TableName() string { return "quote_items" }

// QuoteVersionRecord is one frozen quote snapshot. Payload holds the full
// QuoteSnapshot JSON.
type QuoteVersionRecord struct {
	ID      uint           `gorm:"primaryKey" json:"-"`
	EventID string         `gorm:"column:event_id;size:100;not null;uniqueIndex:idx_quote_version,priority:1" json:"eventId"`
	Version int            `gorm:"column:version;not null;uniqueIndex:idx_quote_version,priority:2" json:"version"`
	SavedAt time.Time      `gorm:"column:saved_at" json:"savedAt"`
	Total   float64        `gorm:"column:total" json:"total"`
	Payload datatypes.JSON `gorm:"column:payload" json:"payload"`
}

func (QuoteVersionRecord) TableName() string { return "quote_versions" }

type MenuMontajeVersionRecord struct {
	ID      uint           `gorm:"primaryKey" json:"-"`
	EventID string         `gorm:"column:event_id;size:100;not null;uniqueIndex:idx_menu_montaje_version,priority:1" json:"eventId"`
	Version int            `gorm:"column:version;not null;uniqueIndex:idx_menu_montaje_version,priority:2" json:"version"`
	SavedAt time.Time      `gorm:"column:saved_at" json:"savedAt"`
	Payload datatypes.JSON `gorm:"column:payload" json:"payload"`
}

func (MenuMontajeVersionRecord) TableName() string { return "menu_montaje_versions" }
