package models

import (
	"time"

	"gorm.io/datatypes"
)

type ChangeLogRecord struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	ReservationKey string    `gorm:"column:reservation_key;size:100;index;not null" json:"reservationKey"`
	Timestamp      time.Time `gorm:"column:timestamp;index" json:"timestamp"`
	ActorID        string    `gorm:"column:actor_id;size:100" json:"actorId"`
	ActorName      string    `gorm:"column:actor_name;size:255" json:"actorName"`
	Description    string    `gorm:"column:description;type:text" json:"description"`
	Position       int       `gorm:"column:position" json:"-"`
}

func (ChangeLogRecord) TableName() string { return "change_log_entries" }

type ReminderRecord struct {
	ID             uint       `gorm:"primaryKey" json:"-"`
	ReservationKey string     `gorm:"column:reservation_key;size:100;index;not null" json:"reservationKey"`
	ReminderID     string     `gorm:"column:reminder_id;size:100" json:"id"`
	DueAt          *time.Time `gorm:"column:due_at;index" json:"dueAt"`
	Message        string     `gorm:"column:message;type:text" json:"message"`
	Done           bool       `gorm:"column:done" json:"done"`
	CreatedBy      string     `gorm:"column:created_by;size:100" json:"createdBy"`
	Position       int        `gorm:"column:position" json:"-"`
}

func (ReminderRecord) TableName() string { return "reminders" }

// AuxBlobRecord stores a miscellaneous document section as opaque JSON.
type AuxBlobRecord struct {
	Key   string         `gorm:"primaryKey;size:100" json:"key"`
	Value datatypes.JSON `gorm:"column:value" json:"value"`
}

func (AuxBlobRecord) TableName() string { return "aux_blobs" }
