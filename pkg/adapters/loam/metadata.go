package loam

// CategoryMetadata is the header of a category document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type CategoryMetadata struct {
	// ID defaults to the document name without extension.
	ID string `json:"id" mapstructure:"id"`
	// Key defaults to the ID.
	Key        string              `json:"key" mapstructure:"key"`
	Colors     []string            `json:"colors" mapstructure:"colors"`
	Variations []VariationMetadata `json:"variations" mapstructure:"variations"`
}

// VariationMetadata declares one variation inline.
type VariationMetadata struct {
	// ID defaults to "<key>-<name>". It must be unique across the catalog.
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
	SVG  string `json:"svg" mapstructure:"svg"`
}
