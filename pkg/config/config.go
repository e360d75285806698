// Package config loads and validates the YAML run configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/flowgrid/pathcover/pkg/logging"
	"github.com/flowgrid/pathcover/pkg/network"
	"github.com/flowgrid/pathcover/pkg/sampling"
	"github.com/flowgrid/pathcover/pkg/validation"
)

var validate = validator.New()

// Config is the full run configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Run        RunConfig        `yaml:"run"`
	Scope      ScopeConfig      `yaml:"scope"`
	Sampling   SamplingConfig   `yaml:"sampling"`
	Validation ValidationConfig `yaml:"validation"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DatabaseConfig points at the network database.
type DatabaseConfig struct {
	URL string `yaml:"url" validate:"required"`
}

// RunConfig carries per-run goals and bounds.
type RunConfig struct {
	Tag            string  `yaml:"tag"`
	TargetCoverage float64 `yaml:"target_coverage" validate:"gt=0,lte=1"`
	MaxAttempts    int     `yaml:"max_attempts" validate:"gte=0"`
}

// ScopeConfig selects the bounded network scope for the run.
type ScopeConfig struct {
	FabNo       int64    `yaml:"fab_no"`
	ModelNo     int64    `yaml:"model_no"`
	PhaseNo     int64    `yaml:"phase_no"`
	Toolsets    []string `yaml:"toolsets"`
	E2EGroupNos []int64  `yaml:"e2e_group_nos"`
}

// Filter converts the scope section to a network filter.
func (s ScopeConfig) Filter() network.Filter {
	return network.Filter{
		FabNo:       s.FabNo,
		ModelNo:     s.ModelNo,
		PhaseNo:     s.PhaseNo,
		Toolsets:    s.Toolsets,
		E2EGroupNos: s.E2EGroupNos,
	}
}

// SamplingConfig tunes pair selection and plateau handling. Fields are
// pointers so an explicit zero survives defaulting; nil means "use the
// production default".
type SamplingConfig struct {
	MaxAttemptsPerEquipment *int     `yaml:"max_attempts_per_equipment" validate:"omitempty,gt=0"`
	MaxAttemptsPerToolset   *int     `yaml:"max_attempts_per_toolset" validate:"omitempty,gt=0"`
	MinNodeDistance         *int64   `yaml:"min_node_distance" validate:"omitempty,gte=0"`
	InterToolset            bool     `yaml:"inter_toolset"`
	CategoryDiversityWeight *float64 `yaml:"category_diversity_weight" validate:"omitempty,gte=0,lte=1"`
	PhaseDiversityWeight    *float64 `yaml:"phase_diversity_weight" validate:"omitempty,gte=0,lte=1"`

	StallThreshold      *int     `yaml:"stall_threshold" validate:"omitempty,gt=0"`
	MinImprovement      *float64 `yaml:"min_improvement" validate:"omitempty,gte=0,lt=1"`
	MaxRelaxationLevels *int     `yaml:"max_relaxation_levels" validate:"omitempty,gte=0"`
	DistanceStep        *int64   `yaml:"distance_step" validate:"omitempty,gte=0"`
}

// Bias converts the sampling section to the sampler's bias settings,
// overlaying the set fields on the production defaults.
func (s SamplingConfig) Bias() sampling.BiasConfig {
	bias := sampling.DefaultBiasConfig()
	if s.MaxAttemptsPerEquipment != nil {
		bias.MaxAttemptsPerEquipment = *s.MaxAttemptsPerEquipment
	}
	if s.MaxAttemptsPerToolset != nil {
		bias.MaxAttemptsPerToolset = *s.MaxAttemptsPerToolset
	}
	if s.MinNodeDistance != nil {
		bias.MinNodeDistance = *s.MinNodeDistance
	}
	bias.InterToolset = s.InterToolset
	if s.CategoryDiversityWeight != nil {
		bias.CategoryDiversityWeight = *s.CategoryDiversityWeight
	}
	if s.PhaseDiversityWeight != nil {
		bias.PhaseDiversityWeight = *s.PhaseDiversityWeight
	}
	return bias
}

// Plateau converts the sampling section to the orchestrator's plateau
// settings, overlaying the set fields on the production defaults.
func (s SamplingConfig) Plateau() sampling.PlateauConfig {
	plateau := sampling.DefaultPlateauConfig()
	if s.StallThreshold != nil {
		plateau.StallThreshold = *s.StallThreshold
	}
	if s.MinImprovement != nil {
		plateau.MinImprovement = *s.MinImprovement
	}
	if s.MaxRelaxationLevels != nil {
		plateau.MaxRelaxationLevels = *s.MaxRelaxationLevels
	}
	if s.DistanceStep != nil {
		plateau.DistanceStep = *s.DistanceStep
	}
	return plateau
}

// ValidationConfig tunes path validation.
type ValidationConfig struct {
	TransitionTable       string  `yaml:"transition_table"`
	PoCMismatchSeverity   string  `yaml:"poc_mismatch_severity" validate:"omitempty,oneof=info warning error critical"`
	EquipmentLogicalCodes []int64 `yaml:"equipment_logical_codes"`
	PoCCodes              []int64 `yaml:"poc_codes"`
}

// Severity returns the configured PoC mismatch severity, defaulting to
// WARNING when the field is absent.
func (v ValidationConfig) Severity() validation.Severity {
	if v.PoCMismatchSeverity == "" {
		return validation.SeverityWarning
	}
	sev, err := validation.ParseSeverity(v.PoCMismatchSeverity)
	if err != nil {
		return validation.SeverityWarning
	}
	return sev
}

// Duration decodes "1h30m" style YAML values into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// CacheConfig selects the universe cache backend.
type CacheConfig struct {
	Backend    string   `yaml:"backend" validate:"omitempty,oneof=none memory disk s3"`
	Dir        string   `yaml:"dir"`
	Bucket     string   `yaml:"bucket"`
	Prefix     string   `yaml:"prefix"`
	TTL        Duration `yaml:"ttl"`
	MaxEntries int      `yaml:"max_entries" validate:"gte=0"`
	MaxBytes   int64    `yaml:"max_bytes" validate:"gte=0"`
}

// LoggingConfig tunes log output.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// ParsedLevel returns the configured log level, defaulting to info.
func (l LoggingConfig) ParsedLevel() logging.Level {
	return logging.ParseLevel(l.Level)
}

// MetricsConfig tunes metric exposition. An empty address disables the
// listener.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Load reads, defaults, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes configuration bytes. Unknown fields are rejected so typos
// fail loudly instead of silently falling back to defaults.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills zero values with production defaults before
// validation, so an omitted section means "defaults", not "invalid".
func (c *Config) applyDefaults() {
	if c.Run.TargetCoverage == 0 {
		c.Run.TargetCoverage = 0.95
	}
	if c.Run.MaxAttempts == 0 {
		c.Run.MaxAttempts = sampling.DefaultMaxAttempts
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "none"
	}
}

// Validate applies tag validation plus the cross-field checks tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	var errs []error
	if c.Scope.Filter().IsEmpty() {
		errs = append(errs, errors.New("scope: at least one constraint is required"))
	}
	if c.Cache.Backend == "disk" && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir: required for the disk backend"))
	}
	if c.Cache.Backend == "s3" && c.Cache.Bucket == "" {
		errs = append(errs, errors.New("cache.bucket: required for the s3 backend"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed with %d errors: %w", len(errs), errs[0])
	}
	return nil
}
