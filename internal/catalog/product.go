package catalog

// Product field names, as referenced by facet definitions.
const (
	FieldCategory          = "category"
	FieldOpeningSystem     = "opening_system"
	FieldHasBlind          = "has_blind"
	FieldBlindMotorization = "blind_motorization"
	FieldFillMaterial      = "fill_material"
	FieldLeafCount         = "leaf_count"
)

var productFields = map[string]bool{
	FieldCategory:          true,
	FieldOpeningSystem:     true,
	FieldHasBlind:          true,
	FieldBlindMotorization: true,
	FieldFillMaterial:      true,
	FieldLeafCount:         true,
}

// KnownField reports whether name is a product field a facet can map to.
func KnownField(name string) bool {
	return productFields[name]
}

// Product is one purchasable variant. Products are immutable once the
// catalog is built.
type Product struct {
	ID                string  `yaml:"id" json:"id" validate:"required"`
	Slug              string  `yaml:"slug" json:"slug" validate:"required"`
	Image             string  `yaml:"image" json:"image"`
	Category          string  `yaml:"category" json:"category" validate:"required"`
	OpeningSystem     string  `yaml:"opening_system" json:"openingSystem" validate:"required"`
	HasBlind          string  `yaml:"has_blind" json:"hasBlind" validate:"required"`
	BlindMotorization *string `yaml:"blind_motorization" json:"blindMotorization"`
	FillMaterial      string  `yaml:"fill_material" json:"fillMaterial" validate:"required"`
	LeafCount         int     `yaml:"leaf_count" json:"leafCount" validate:"min=1"`
}

// Field returns the value of the named field. The second result is false
// when the field is null or unknown; a null field never satisfies a set
// selection.
func (p Product) Field(name string) (Value, bool) {
	switch name {
	case FieldCategory:
		return Value(p.Category), true
	case FieldOpeningSystem:
		return Value(p.OpeningSystem), true
	case FieldHasBlind:
		return Value(p.HasBlind), true
	case FieldBlindMotorization:
		if p.BlindMotorization == nil {
			return "", false
		}
		return Value(*p.BlindMotorization), true
	case FieldFillMaterial:
		return Value(p.FillMaterial), true
	case FieldLeafCount:
		return Int(p.LeafCount), true
	default:
		return "", false
	}
}
