// Package rules loads business matching rules from YAML, including the
// embedded seed catalog shipped with the binary.
package rules

import (
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
)

//go:embed seed.yaml
var seedYAML []byte

// File is the on-disk rule catalog layout.
type File struct {
	Businesses []Entry `yaml:"businesses"`
}

// Entry describes one business and its matching patterns.
type Entry struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	DefaultCategory string   `yaml:"defaultCategory"`
	Patterns        []string `yaml:"patterns"`
}

// Load parses a rule catalog and validates every entry. Patterns are
// normalized (empties and duplicates dropped) before validation so a sloppy
// catalog with repeated lines still loads.
func Load(r io.Reader) ([]core.Business, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading rule catalog: %w", err)
	}
	return parse(raw)
}

// Seed returns the embedded default catalog.
func Seed() ([]core.Business, error) {
	return parse(seedYAML)
}

func parse(raw []byte) ([]core.Business, error) {
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, core.WrapError(core.CodeValidationFailed, err, "parsing rule catalog")
	}

	seen := make(map[string]struct{}, len(file.Businesses))
	out := make([]core.Business, 0, len(file.Businesses))
	for i, entry := range file.Businesses {
		if entry.ID == "" {
			return nil, core.NewError(core.CodeMissingField, "catalog entry %d has no id", i)
		}
		if _, dup := seen[entry.ID]; dup {
			return nil, core.NewError(core.CodeDuplicateName, "duplicate business id %q", entry.ID)
		}
		seen[entry.ID] = struct{}{}

		business := core.Business{
			ID:                entry.ID,
			Name:              entry.Name,
			DefaultCategoryID: entry.DefaultCategory,
			Regexps:           core.NormalizeRules(entry.Patterns),
		}
		if err := business.Validate(); err != nil {
			return nil, core.WrapError(core.CodeInvalidPattern, err, "business %q", entry.ID)
		}
		out = append(out, business)
	}
	return out, nil
}
