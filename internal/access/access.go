// Package access decides whether stored article text is readable or sits
// behind a paywall or login.
package access

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind selects how an indicator is matched.
type Kind string

// Indicator kinds.
const (
	KindContains Kind = "contains"
	KindRegex    Kind = "regex"
)

// Scope selects which article text an indicator is matched against.
type Scope string

// Indicator scopes.
const (
	ScopeAll     Scope = "all"
	ScopeBullet  Scope = "bullet"
	ScopeContent Scope = "content"
)

// Indicator is a phrase that marks an article as inaccessible.
type Indicator struct {
	Kind  Kind
	Scope Scope
	Value string
}

// DefaultIndicators returns the paywall phrases checked against the summary
// and body of an article.
func DefaultIndicators() []Indicator {
	phrases := []string{
		"paywall",
		"subscription required",
		"unable to access",
		"authorization",
		"sign in to read",
		"premium content",
		"subscribers only",
		"login to continue",
		"access denied",
		"content not available",
	}
	out := make([]Indicator, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, Indicator{Kind: KindContains, Scope: ScopeAll, Value: p})
	}
	return out
}

// Text is the article text an indicator can match.
type Text struct {
	Bullet  string
	Content string
}

type compiled struct {
	Indicator
	re *regexp.Regexp
}

// Checker matches article text against indicators.
type Checker struct {
	indicators []compiled
}

// NewChecker compiles indicators. Matching ignores case.
func NewChecker(indicators []Indicator) (*Checker, error) {
	c := &Checker{indicators: make([]compiled, 0, len(indicators))}
	for _, ind := range indicators {
		ci := compiled{Indicator: ind}
		switch ind.Kind {
		case KindContains:
			ci.Value = strings.ToLower(ind.Value)
		case KindRegex:
			re, err := regexp.Compile("(?i)" + ind.Value)
			if err != nil {
				return nil, fmt.Errorf("indicator %q: invalid regex: %w", ind.Value, err)
			}
			ci.re = re
		default:
			return nil, fmt.Errorf("indicator %q: unknown kind %q", ind.Value, ind.Kind)
		}
		c.indicators = append(c.indicators, ci)
	}
	return c, nil
}

// Default returns a Checker over DefaultIndicators.
func Default() *Checker {
	c, err := NewChecker(DefaultIndicators())
	if err != nil {
		panic(err)
	}
	return c
}

// Blocked returns the first indicator found in t.
func (c *Checker) Blocked(t Text) (Indicator, bool) {
	for _, ind := range c.indicators {
		if ind.matches(t) {
			return ind.Indicator, true
		}
	}
	return Indicator{}, false
}

// Accessible reports whether no indicator appears in the bullet or content.
func (c *Checker) Accessible(bullet, content string) bool {
	_, blocked := c.Blocked(Text{Bullet: bullet, Content: content})
	return !blocked
}

func (ci compiled) matches(t Text) bool {
	text := textForScope(t, ci.Scope)
	if ci.re != nil {
		return ci.re.MatchString(text)
	}
	return strings.Contains(text, ci.Value)
}

func textForScope(t Text, scope Scope) string {
	switch scope {
	case ScopeBullet:
		return strings.ToLower(t.Bullet)
	case ScopeContent:
		return strings.ToLower(t.Content)
	default:
		return strings.ToLower(t.Bullet + " " + t.Content)
	}
}
