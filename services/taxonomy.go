package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"venue-backend/models"
)

var caseFolder = cases.Fold()

// CollationKey is the name under which categories and subcategories are
// compared: trimmed, inner whitespace collapsed, accents stripped and case
// folded. "Bebidas", " bébidas " and "BEBIDAS" share one key.
func CollationKey(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return caseFolder.String(stripped)
}

type subKey struct {
	category    string
	subcategory string
}

// taxonomy derives normalized category and subcategory rows from the names
// carried by catalog items. Ids are synthetic and assigned in first-seen
// order; the first spelling seen becomes the stored name.
type taxonomy struct {
	categoryIDs    map[string]uint
	subcategoryIDs map[subKey]uint
	categories     []models.CatalogCategoryRecord
	subcategories  []models.CatalogSubcategoryRecord
}

func newTaxonomy() *taxonomy {
	return &taxonomy{
		categoryIDs:    map[string]uint{},
		subcategoryIDs: map[subKey]uint{},
	}
}

func (t *taxonomy) assign(category, subcategory string) (*uint, *uint) {
	catKey := CollationKey(category)
	var catID *uint
	if catKey != "" {
		id, ok := t.categoryIDs[catKey]
		if !ok {
			id = uint(len(t.categories) + 1)
			t.categoryIDs[catKey] = id
			t.categories = append(t.categories, models.CatalogCategoryRecord{
				ID:   id,
				Name: strings.Join(strings.Fields(category), " "),
			})
		}
		catID = &id
	}

	key := subKey{category: catKey, subcategory: CollationKey(subcategory)}
	if key.subcategory == "" {
		return catID, nil
	}
	id, ok := t.subcategoryIDs[key]
	if !ok {
		id = uint(len(t.subcategories) + 1)
		t.subcategoryIDs[key] = id
		t.subcategories = append(t.subcategories, models.CatalogSubcategoryRecord{
			ID:         id,
			CategoryID: catID,
			Name:       strings.Join(strings.Fields(subcategory), " "),
		})
	}
	return catID, &id
}
