package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"venue-backend/models"
)

// LoadBootstrap returns the document a fresh installation is seeded with.
// Without a path it is models.DefaultDocument. The file is YAML (JSON is
// accepted too) using the document's wire field names; sections it leaves
// out keep their defaults.
func LoadBootstrap(path string) (models.Document, error) {
	doc := models.DefaultDocument()
	if path == "" {
		return doc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read bootstrap file: %w", err)
	}
	return ParseBootstrap(raw)
}

func ParseBootstrap(raw []byte) (models.Document, error) {
	doc := models.DefaultDocument()

	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return doc, fmt.Errorf("parse bootstrap: %w", err)
	}
	if len(tree) == 0 {
		return doc, nil
	}
	// yaml.v3 decodes string-keyed mappings as map[string]interface{}, so the
	// tree re-encodes as JSON and picks up the wire tags.
	encoded, err := json.Marshal(tree)
	if err != nil {
		return doc, fmt.Errorf("encode bootstrap: %w", err)
	}
	var overlay models.Document
	if err := json.Unmarshal(encoded, &overlay); err != nil {
		return doc, fmt.Errorf("decode bootstrap: %w", err)
	}

	if _, ok := tree["rooms"]; ok {
		doc.Rooms = overlay.Rooms
	}
	if overlay.Staff != nil {
		doc.Staff = overlay.Staff
	}
	if overlay.Companies != nil {
		doc.Companies = overlay.Companies
	}
	if overlay.CatalogItems != nil {
		doc.CatalogItems = overlay.CatalogItems
	}
	if overlay.Events != nil {
		doc.Events = overlay.Events
	}
	if overlay.ChangeLog != nil {
		doc.ChangeLog = overlay.ChangeLog
	}
	if overlay.Reminders != nil {
		doc.Reminders = overlay.Reminders
	}
	for key, value := range overlay.Aux {
		doc.Aux[key] = value
	}
	doc.Normalize()
	return doc, nil
}
