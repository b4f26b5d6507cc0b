package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ConfigError collects everything wrong with one configuration file so a
// single `config check` run can report it all.
type ConfigError struct {
	Path    string
	Missing []string // ${VAR} references with no value in the environment
	Errors  []string // "section.key: reason"
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:", e.Path)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "\n  unset environment variables: %s", strings.Join(e.Missing, ", "))
	}
	sections := e.Sections()
	for _, name := range slices.Sorted(maps.Keys(sections)) {
		fmt.Fprintf(&b, "\n  [%s]", name)
		for _, msg := range sections[name] {
			fmt.Fprintf(&b, "\n    - %s", msg)
		}
	}
	return b.String()
}

// HasErrors reports whether anything was collected.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}

// Sections groups the validation errors by their top-level TOML table.
// Errors without a "section." prefix land under "general".
func (e *ConfigError) Sections() map[string][]string {
	out := make(map[string][]string)
	for _, msg := range e.Errors {
		section := "general"
		if field, _, ok := strings.Cut(msg, ":"); ok {
			if name, _, dotted := strings.Cut(field, "."); dotted {
				section = name
			}
		}
		out[section] = append(out[section], msg)
	}
	return out
}
