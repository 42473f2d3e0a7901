package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Document is the whole application state exchanged between the browser
// sessions and the server. It is only ever replaced wholesale.
type Document struct {
	Rooms        []string                   `json:"rooms"`
	Staff        map[string]StaffMember     `json:"staff"`
	Companies    map[string]Company         `json:"companies"`
	CatalogItems map[string]CatalogItem     `json:"catalogItems"`
	Events       []Event                    `json:"events"`
	ChangeLog    map[string][]ChangeEntry   `json:"changeLog"`
	Reminders    map[string][]Reminder      `json:"reminders"`
	Aux          map[string]json.RawMessage `json:"aux"`
}

type StaffMember struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Username       string             `json:"username"`
	FullName       string             `json:"fullName"`
	Credentials    string             `json:"credentials"`
	Active         bool               `json:"active"`
	MonthlyTargets map[string]float64 `json:"monthlyTargets"`
}

type Manager struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LegalName string    `json:"legalName"`
	TaxID     string    `json:"taxId"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	Managers  []Manager `json:"managers"`
}

// Quantity modes for catalog items.
const (
	QuantityFixed   = "fixed"
	QuantityPerPax  = "perPax"
	QuantityPerUnit = "perUnit"
)

type CatalogItem struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Category     string  `json:"category"`
	Subcategory  string  `json:"subcategory"`
	QuantityMode string  `json:"quantityMode"`
}

type EventStatus string

const (
	EventTentative EventStatus = "tentative"
	EventConfirmed EventStatus = "confirmed"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
	EventBlocked   EventStatus = "blocked"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventTentative, EventConfirmed, EventCancelled, EventCompleted, EventBlocked:
		return true
	}
	return false
}

// Event is one calendar occupancy of a room.
type Event struct {
	ID        string      `json:"id"`
	GroupID   string      `json:"groupId,omitempty"`
	Name      string      `json:"name"`
	Room      string      `json:"room"`
	Date      string      `json:"date"`
	StartTime string      `json:"startTime"`
	EndTime   string      `json:"endTime"`
	Status    EventStatus `json:"status"`
	StaffID   string      `json:"staffId"`
	Pax       int         `json:"pax"`
	Notes     string      `json:"notes"`
	Quote     *Quote      `json:"quote,omitempty"`
}

// ReservationKey groups the events of a multi-day or multi-room booking
// for change log and reminder association.
func (e Event) ReservationKey() string {
	if g := strings.TrimSpace(e.GroupID); g != "" {
		return g
	}
	return e.ID
}

type ChangeEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	ActorID     string    `json:"actorId"`
	ActorName   string    `json:"actorName"`
	Description string    `json:"description"`
}

type Reminder struct {
	ID        string     `json:"id"`
	DueAt     *time.Time `json:"dueAt,omitempty"`
	Message   string     `json:"message"`
	Done      bool       `json:"done"`
	CreatedBy string     `json:"createdBy"`
}

// Normalize replaces nil collections with empty ones so the document always
// serializes with the same shape.
func (d *Document) Normalize() {
	if d.Rooms == nil {
		d.Rooms = []string{}
	}
	if d.Staff == nil {
		d.Staff = map[string]StaffMember{}
	}
	if d.Companies == nil {
		d.Companies = map[string]Company{}
	}
	if d.CatalogItems == nil {
		d.CatalogItems = map[string]CatalogItem{}
	}
	if d.Events == nil {
		d.Events = []Event{}
	}
	if d.ChangeLog == nil {
		d.ChangeLog = map[string][]ChangeEntry{}
	}
	if d.Reminders == nil {
		d.Reminders = map[string][]Reminder{}
	}
	if d.Aux == nil {
		d.Aux = map[string]json.RawMessage{}
	}
	for id, s := range d.Staff {
		if s.MonthlyTargets == nil {
			s.MonthlyTargets = map[string]float64{}
			d.Staff[id] = s
		}
	}
	for id, c := range d.Companies {
		if c.Managers == nil {
			c.Managers = []Manager{}
			d.Companies[id] = c
		}
	}
	for i := range d.Events {
		if q := d.Events[i].Quote; q != nil {
			q.normalize()
		}
	}
}

// EventsInGroup returns the events sharing the given reservation key.
func (d *Document) EventsInGroup(key string) []Event {
	var out []Event
	for _, e := range d.Events {
		if e.ReservationKey() == key {
			out = append(out, e)
		}
	}
	return out
}

// DefaultDocument is the document a fresh installation starts from.
func DefaultDocument() Document {
	d := Document{
		Rooms: []string{"Salon A", "Salon B", "Terraza"},
		Aux: map[string]json.RawMessage{
			"disabledRooms":      json.RawMessage(`[]`),
			"disabledStaff":      json.RawMessage(`[]`),
			"disabledCompanies":  json.RawMessage(`[]`),
			"globalTargets":      json.RawMessage(`{}`),
			"checklistTemplates": json.RawMessage(`[]`),
		},
	}
	d.Normalize()
	return d
}
