package access

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// indicatorFile is the YAML layout of an indicator list:
//
//	defaults: true
//	indicators:
//	  - value: "members only"
//	  - kind: regex
//	    scope: content
//	    value: "log ?in to (read|continue)"
type indicatorFile struct {
	Defaults   bool `yaml:"defaults"`
	Indicators []struct {
		Kind  Kind   `yaml:"kind"`
		Scope Scope  `yaml:"scope"`
		Value string `yaml:"value"`
	} `yaml:"indicators"`
}

// ParseIndicators reads an indicator list. Kind defaults to contains and
// scope to all. With defaults set, DefaultIndicators come first.
func ParseIndicators(r io.Reader) ([]Indicator, error) {
	var f indicatorFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode indicators: %w", err)
	}

	var out []Indicator
	if f.Defaults {
		out = DefaultIndicators()
	}
	for i, raw := range f.Indicators {
		if raw.Value == "" {
			return nil, fmt.Errorf("indicator %d: empty value", i+1)
		}
		ind := Indicator{Kind: raw.Kind, Scope: raw.Scope, Value: raw.Value}
		if ind.Kind == "" {
			ind.Kind = KindContains
		}
		switch ind.Scope {
		case "":
			ind.Scope = ScopeAll
		case ScopeAll, ScopeBullet, ScopeContent:
		default:
			return nil, fmt.Errorf("indicator %q: unknown scope %q", ind.Value, ind.Scope)
		}
		out = append(out, ind)
	}
	return out, nil
}

// Load returns a Checker for the indicator file at path, or the default
// Checker when path is empty.
func Load(path string) (*Checker, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	indicators, err := ParseIndicators(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewChecker(indicators)
}
