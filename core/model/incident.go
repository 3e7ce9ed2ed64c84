package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCategory is returned when an incident category is not one of
// Medical, Fire or Police.
var ErrInvalidCategory = errors.New("invalid incident category")

// Category classifies an incident and the kind of vehicle expected to serve it.
type Category string

const (
	CategoryMedical Category = "Medical"
	CategoryFire    Category = "Fire"
	CategoryPolice  Category = "Police"
)

// Categories lists every supported category in a stable order.
var Categories = []Category{CategoryMedical, CategoryFire, CategoryPolice}

// ParseCategory accepts the canonical names in any case as well as the
// "<Category> Emergency" form used by incident feeds.
func ParseCategory(s string) (Category, error) {
	name := strings.TrimSpace(strings.ToLower(s))
	name = strings.TrimSuffix(name, " emergency")
	for _, c := range Categories {
		if strings.ToLower(string(c)) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Valid reports whether c is a supported category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Severity is the coarse urgency of an incident.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// Severities lists severities from most to least severe.
var Severities = []Severity{SeverityHigh, SeverityMedium, SeverityLow}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	name := strings.TrimSpace(strings.ToLower(s))
	for _, sev := range Severities {
		if strings.ToLower(string(sev)) == name {
			return sev, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Rank orders severities: High=3, Medium=2, Low=1, anything else 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Location is a WGS84 coordinate in degrees.
type Location struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lon float64 `json:"lon" mapstructure:"lon"`
}

func (l Location) String() string {
	return fmt.Sprintf("(%.4f,%.4f)", l.Lat, l.Lon)
}

// Validate checks that the coordinate is within WGS84 bounds.
func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 || l.Lon < -180 || l.Lon > 180 {
		return fmt.Errorf("location %s out of bounds", l)
	}
	return nil
}

// ResourceRequirement maps a capability name (paramedics, fireTrucks...) to
// the minimum count needed.
type ResourceRequirement map[string]int

// Clone returns an independent copy.
func (r ResourceRequirement) Clone() ResourceRequirement {
	if r == nil {
		return nil
	}
	cp := make(ResourceRequirement, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Meets returns true when caps provides at least the required count for
// every entry. An empty requirement is always met.
func (r ResourceRequirement) Meets(caps map[string]int) bool {
	for name, need := range r {
		if caps[name] < need {
			return false
		}
	}
	return true
}

// Assessment is the outcome of classifying an incident.
type Assessment struct {
	Severity     Severity            `json:"severity"`
	Requirements ResourceRequirement `json:"resource_requirements"`
	// Source names the strategy that produced the severity ("keyword" or the
	// provider name).
	Source string `json:"source"`
}

// Incident is a reported emergency requiring a vehicle response.
type Incident struct {
	ID           string              `json:"id"`
	Category     Category            `json:"category"`
	Location     Location            `json:"location"`
	Description  string              `json:"description"`
	CreatedAt    time.Time           `json:"created_at"`
	Severity     Severity            `json:"severity,omitempty"`
	Requirements ResourceRequirement `json:"resource_requirements,omitempty"`
	Annotations  map[string]string   `json:"annotations,omitempty"`
}

// Assessed returns a copy of the incident carrying the assessment results.
func (i Incident) Assessed(a Assessment) Incident {
	i.Severity = a.Severity
	i.Requirements = a.Requirements.Clone()
	i.Annotations = cloneStrings(i.Annotations)
	return i
}

// Annotate returns a copy of the incident with the key set.
func (i Incident) Annotate(key, value string) Incident {
	i.Annotations = cloneStrings(i.Annotations)
	if i.Annotations == nil {
		i.Annotations = make(map[string]string, 1)
	}
	i.Annotations[key] = value
	return i
}

func cloneStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
