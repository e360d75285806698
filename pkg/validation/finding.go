package validation

import (
	"fmt"
	"strings"
)

// Severity classifies how serious a finding is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the canonical upper-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity converts a case-insensitive severity name to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(s) {
	case "INFO":
		return SeverityInfo, nil
	case "WARNING", "WARN":
		return SeverityWarning, nil
	case "ERROR":
		return SeverityError, nil
	case "CRITICAL":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", s)
	}
}

// Scope identifies the domain a finding belongs to.
type Scope int

const (
	ScopeConnectivity Scope = iota
	ScopeFlow
	ScopeMaterial
	ScopeQA
	ScopeScenario
)

func (s Scope) String() string {
	switch s {
	case ScopeConnectivity:
		return "CONNECTIVITY"
	case ScopeFlow:
		return "FLOW"
	case ScopeMaterial:
		return "MATERIAL"
	case ScopeQA:
		return "QA"
	case ScopeScenario:
		return "SCENARIO"
	default:
		return "UNKNOWN"
	}
}

// RuleFamily groups findings by the traversal rule that produced them.
type RuleFamily int

const (
	FamilyConnectivity RuleFamily = iota
	FamilyUtility
	FamilyPoC
	FamilyStructure
)

func (f RuleFamily) String() string {
	switch f {
	case FamilyConnectivity:
		return "CONNECTIVITY"
	case FamilyUtility:
		return "UTILITY"
	case FamilyPoC:
		return "POC"
	case FamilyStructure:
		return "STRUCTURE"
	default:
		return "UNKNOWN"
	}
}

// ObjectType names the kind of network element a finding points at.
type ObjectType int

const (
	ObjectNode ObjectType = iota
	ObjectLink
	ObjectPath
)

func (o ObjectType) String() string {
	switch o {
	case ObjectNode:
		return "NODE"
	case ObjectLink:
		return "LINK"
	case ObjectPath:
		return "PATH"
	default:
		return "UNKNOWN"
	}
}

// Rule codes emitted by the validator. The code string is the stable external
// identifier; the typed dimensions on Finding carry the classification.
const (
	RuleEmptyPath         = "PATH_CONN_001"
	RuleEndpointMissing   = "PATH_CONN_002"
	RuleBrokenContinuity  = "PATH_CONN_003"
	RuleDanglingLink      = "PATH_CONN_004"
	RuleDuplicateLink     = "PATH_CONN_005"
	RuleUnknownElement    = "PATH_CONN_006"
	RuleMissingUtility    = "PATH_UTY_001"
	RuleUtilityMismatch   = "PATH_UTY_002"
	RuleInvalidTransition = "PATH_UTY_003"
	RuleOrphanedUtility   = "PATH_UTY_004"
	RulePoCNoUtility      = "PATH_POC_001"
	RulePoCNotUsed        = "PATH_POC_002"
	RulePoCNoReference    = "PATH_QA_001"
	RuleRevisitedNode     = "PATH_STRUCT_001"
)

// Finding is a single validation result. Findings are data, not errors: a
// path with findings is still a valid, persisted path.
type Finding struct {
	RuleCode   string
	Severity   Severity
	Scope      Scope
	Family     RuleFamily
	ObjectType ObjectType
	ObjectID   int64
	Message    string
	Context    map[string]any
}

// CountBySeverity tallies findings per severity level.
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// HasCritical reports whether any finding is CRITICAL.
func HasCritical(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
