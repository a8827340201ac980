package models

type CustomFieldType string

const (
	FieldTypeText   CustomFieldType = "text"
	FieldTypeSelect CustomFieldType = "select"
	FieldTypeNumber CustomFieldType = "number"
	FieldTypeDate   CustomFieldType = "date"
	FieldTypeTag    CustomFieldType = "tag"
)

func (t CustomFieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeSelect, FieldTypeNumber, FieldTypeDate, FieldTypeTag:
		return true
	}
	return false
}

// CustomFieldDefinition is process-wide configuration, not per-task data.
// Tasks reference definition ids in their custom field maps with no
// integrity constraint: deleting a definition leaves task values orphaned.
type CustomFieldDefinition struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         CustomFieldType `json:"type"`
	Options      []string        `json:"options,omitempty"`
	Required     bool            `json:"required,omitempty"`
	DefaultValue string          `json:"default_value,omitempty"`
}

func (d CustomFieldDefinition) Clone() CustomFieldDefinition {
	c := d
	c.Options = make([]string, len(d.Options))
	copy(c.Options, d.Options)
	return c
}

// SeedFieldDefinitions is the built-in definition set used when no local
// cache exists yet.
func SeedFieldDefinitions() []CustomFieldDefinition {
	return []CustomFieldDefinition{
		{
			ID:      "category",
			Name:    "Category",
			Type:    FieldTypeTag,
			Options: []string{"Frontend", "Backend", "Design", "Marketing", "Other"},
		},
		{
			ID:      "tags",
			Name:    "Tags",
			Type:    FieldTypeTag,
			Options: []string{},
		},
	}
}
