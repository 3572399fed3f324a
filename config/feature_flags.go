package config

import (
	"hash/fnv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags toggles optional tutor behaviour. A flag is on, off, or
// rolled out to a percentage of students by a stable hash of their ID.
type FeatureFlags struct {
	mu        sync.RWMutex
	features  map[string]*Feature
	overrides map[string]map[string]bool // student ID -> feature -> enabled
}

// Feature is a single flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// RolloutPercent is 0-100.
	RolloutPercent int
}

// Flag names.
const (
	FeatureLLMTheory    = "theory.llm"
	FeatureProfileCache = "cache.profile"
	FeatureEventMirror  = "events.mirror"
	FeatureCLIColour    = "cli.colour"
)

// LoadFeatureFlags returns the defaults with FEATURE_* overrides applied.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:  make(map[string]*Feature),
		overrides: make(map[string]map[string]bool),
	}
	ff.register(FeatureLLMTheory, "Ask the language model for theory when an API key is set", true)
	ff.register(FeatureProfileCache, "Cache profiles in Redis when Redis is enabled", true)
	ff.register(FeatureEventMirror, "Mirror domain events to Redis Pub/Sub", false)
	ff.register(FeatureCLIColour, "Colour CLI output", true)
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) register(name, desc string, on bool) {
	pct := 0
	if on {
		pct = 100
	}
	ff.features[name] = &Feature{Name: name, Description: desc, Enabled: on, RolloutPercent: pct}
}

// loadFromEnvironment reads FEATURE_<NAME>=true|false|<percent>,
// e.g. FEATURE_THEORY_LLM=false or FEATURE_EVENTS_MIRROR=25.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, f := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			f.Enabled = b
			f.RolloutPercent = 0
			if b {
				f.RolloutPercent = 100
			}
			continue
		}
		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			f.Enabled = p > 0
			f.RolloutPercent = p
		}
	}
}

// "theory.llm" -> "FEATURE_THEORY_LLM"
func featureNameToEnvKey(name string) string {
	return "FEATURE_" + strings.ReplaceAll(strings.ToUpper(name), ".", "_")
}

// IsEnabled reports whether name is on. studentID may be empty for
// process-wide decisions, in which case any non-zero rollout counts as on.
func (ff *FeatureFlags) IsEnabled(name, studentID string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if studentID != "" {
		if on, ok := ff.overrides[studentID][name]; ok {
			return on
		}
	}
	f, ok := ff.features[name]
	if !ok || !f.Enabled {
		return false
	}
	if f.RolloutPercent < 100 && studentID != "" {
		return inRollout(studentID, name, f.RolloutPercent)
	}
	return f.RolloutPercent > 0
}

// inRollout hashes student and feature together so a student keeps the
// same bucket across runs.
func inRollout(studentID, name string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(name))
	h.Write([]byte(studentID))
	return int(h.Sum32()%100) < percent
}

// SetOverride forces name on or off for one student.
func (ff *FeatureFlags) SetOverride(studentID, name string, on bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if ff.overrides[studentID] == nil {
		ff.overrides[studentID] = make(map[string]bool)
	}
	ff.overrides[studentID][name] = on
}

// SetRolloutPercent changes a flag's rollout.
func (ff *FeatureFlags) SetRolloutPercent(name string, percent int) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}
	ff.mu.Lock()
	defer ff.mu.Unlock()
	f, ok := ff.features[name]
	if !ok {
		return ErrFeatureNotFound
	}
	f.RolloutPercent = percent
	f.Enabled = percent > 0
	return nil
}

// Names lists the known flags, sorted.
func (ff *FeatureFlags) Names() []string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	names := make([]string, 0, len(ff.features))
	for n := range ff.features {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
