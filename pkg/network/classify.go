package network

// Default data classification codes. The reserved-code assignments differ
// between site databases, so they are configurable; these defaults match the
// common deployment.
var (
	DefaultEquipmentLogicalCodes = []int64{50000}
	DefaultPoCCodes              = []int64{15000, 50001, 50002, 50003}
)

// Classifier resolves reserved data classification codes to node roles.
// Built once from configuration and read-only afterwards.
type Classifier struct {
	equipmentLogical map[int64]struct{}
	poc              map[int64]struct{}
}

// NewClassifier builds a classifier from explicit code lists. Empty lists
// fall back to the defaults.
func NewClassifier(equipmentLogicalCodes, pocCodes []int64) *Classifier {
	if len(equipmentLogicalCodes) == 0 {
		equipmentLogicalCodes = DefaultEquipmentLogicalCodes
	}
	if len(pocCodes) == 0 {
		pocCodes = DefaultPoCCodes
	}
	c := &Classifier{
		equipmentLogical: make(map[int64]struct{}, len(equipmentLogicalCodes)),
		poc:              make(map[int64]struct{}, len(pocCodes)),
	}
	for _, code := range equipmentLogicalCodes {
		c.equipmentLogical[code] = struct{}{}
	}
	for _, code := range pocCodes {
		c.poc[code] = struct{}{}
	}
	return c
}

// IsEquipmentLogical reports whether the data code marks a segment-boundary
// node that legitimately carries no utility.
func (c *Classifier) IsEquipmentLogical(dataCode int64) bool {
	_, ok := c.equipmentLogical[dataCode]
	return ok
}

// IsPoC reports whether the data code marks an equipment point of contact.
func (c *Classifier) IsPoC(dataCode int64) bool {
	_, ok := c.poc[dataCode]
	return ok
}
