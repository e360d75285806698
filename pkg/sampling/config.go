package sampling

// BiasConfig tunes the anti-bias rules applied during pair selection.
type BiasConfig struct {
	// MaxAttemptsPerEquipment caps how often a single piece of equipment is
	// picked before its counter must be reset.
	MaxAttemptsPerEquipment int

	// MaxAttemptsPerToolset caps how often a single toolset is picked before
	// its counter must be reset.
	MaxAttemptsPerToolset int

	// MinNodeDistance is the minimum absolute node-id distance between the
	// two PoCs of a pair. Relaxation shrinks this value.
	MinNodeDistance int64

	// InterToolset selects pairs across two different toolsets instead of
	// within one.
	InterToolset bool

	// Diversity weights reduce the pick probability of equipment belonging
	// to overrepresented categories or phases. Zero disables weighting.
	CategoryDiversityWeight float64
	PhaseDiversityWeight    float64
}

// DefaultBiasConfig returns the production bias defaults.
func DefaultBiasConfig() BiasConfig {
	return BiasConfig{
		MaxAttemptsPerEquipment: 3,
		MaxAttemptsPerToolset:   5,
		MinNodeDistance:         10,
		CategoryDiversityWeight: 0.2,
		PhaseDiversityWeight:    0.2,
	}
}

// PlateauConfig tunes plateau detection and progressive relaxation.
type PlateauConfig struct {
	// StallThreshold is the number of attempts without meaningful coverage
	// improvement that triggers a plateau.
	StallThreshold int

	// MinImprovement is the combined-coverage gain below which an attempt
	// counts as stalled.
	MinImprovement float64

	// MaxRelaxationLevels bounds how many times the bias constraints may be
	// relaxed before the run accepts its best coverage.
	MaxRelaxationLevels int

	// DistanceStep is how much MinNodeDistance shrinks per relaxation level.
	DistanceStep int64
}

// DefaultPlateauConfig returns the production plateau defaults.
func DefaultPlateauConfig() PlateauConfig {
	return PlateauConfig{
		StallThreshold:      50,
		MinImprovement:      0.01,
		MaxRelaxationLevels: 3,
		DistanceStep:        2,
	}
}
