package models

// Category and subcategory ids are synthetic: they are assigned during each
// reconciliation from the names carried by the catalog items.
type CatalogCategoryRecord struct {
	ID   uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"column:name;size:191;not null" json:"name"`

	Subcategories []CatalogSubcategoryRecord `gorm:"foreignKey:CategoryID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Items         []CatalogItemRecord        `gorm:"foreignKey:CategoryID;references:ID;constraint:OnDelete:SET NULL" json:"-"`
}

func (CatalogCategoryRecord) TableName() string { return "catalog_categories" }

type CatalogSubcategoryRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CategoryID *uint  `gorm:"column:category_id;index" json:"categoryId"`
	Name       string `gorm:"column:name;size:191;not null" json:"name"`

	Items []CatalogItemRecord `gorm:"foreignKey:SubcategoryID;references:ID;constraint:OnDelete:SET NULL" json:"-"`
}

func (CatalogSubcategoryRecord) TableName() string { return "catalog_subcategories" }

type CatalogItemRecord struct {
	ID            string  `gorm:"primaryKey;size:100" json:"id"`
	Name          string  `gorm:"column:name;size:255" json:"name"`
	Price         float64 `gorm:"column:price" json:"price"`
	CategoryID    *uint   `gorm:"column:category_id;index" json:"categoryId"`
	SubcategoryID *uint   `gorm:"column:subcategory_id;index" json:"subcategoryId"`
	QuantityMode  string  `gorm:"column:quantity_mode;size:20" json:"quantityMode"`
}

func (CatalogItemRecord) TableName() string { return "catalog_items" }
