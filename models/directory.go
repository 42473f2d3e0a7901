package models

import "gorm.io/datatypes"

type RoomRecord struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"column:name;size:191;uniqueIndex;not null" json:"name"`
	Position int    `gorm:"column:position" json:"position"`
}

func (RoomRecord) TableName() string { return "rooms" }

type StaffRecord struct {
	ID             string         `gorm:"primaryKey;size:100" json:"id"`
	Name           string         `gorm:"column:name;size:255" json:"name"`
	Username       string         `gorm:"column:username;size:150;index" json:"username"`
	FullName       string         `gorm:"column:full_name;size:255" json:"fullName"`
	Credentials    string         `gorm:"column:credentials;size:255" json:"-"`
	Active         bool           `gorm:"column:active" json:"active"`
	MonthlyTargets datatypes.JSON `gorm:"column:monthly_targets" json:"monthlyTargets"`
}

func (StaffRecord) TableName() string { return "staff" }

type CompanyRecord struct {
	ID        string `gorm:"primaryKey;size:100" json:"id"`
	Name      string `gorm:"column:name;size:255" json:"name"`
	LegalName string `gorm:"column:legal_name;size:255" json:"legalName"`
	TaxID     string `gorm:"column:tax_id;size:50" json:"taxId"`
	Email     string `gorm:"column:email;size:150" json:"email"`
	Phone     string `gorm:"column:phone;size:50" json:"phone"`
	Address   string `gorm:"column:address;type:text" json:"address"`
	Notes     string `gorm:"column:notes;type:text" json:"notes"`

	Managers []CompanyManagerRecord `gorm:"foreignKey:CompanyID;references:ID;constraint:OnDelete:CASCADE" json:"managers,omitempty"`
}

func (CompanyRecord) TableName() string { return "companies" }

// CompanyManagerRecord ids are only unique inside their company.
type CompanyManagerRecord struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	CompanyID string `gorm:"column:company_id;size:100;index;not null" json:"companyId"`
	ManagerID string `gorm:"column:manager_id;size:100" json:"id"`
	Name      string `gorm:"column:name;size:255" json:"name"`
	Contact   string `gorm:"column:contact;size:255" json:"contact"`
	Position  int    `gorm:"column:position" json:"-"`
}

func (CompanyManagerRecord) TableName() string { return "company_managers" }
