package textmetrics

import (
	"errors"
	"fmt"
	"strings"
)

// #region lexicon

// Lexicon is an immutable, versioned list of lowercase terms scored as one
// lexical category. Construct with NewLexicon; the zero value has no terms.
type Lexicon struct {
	name    string
	version string
	terms   []string
}

// NewLexicon validates and copies terms. Terms are lowercased and trimmed.
func NewLexicon(name, version string, terms []string) (Lexicon, error) {
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)
	if name == "" {
		return Lexicon{}, errors.New("lexicon name is required")
	}
	if version == "" {
		return Lexicon{}, fmt.Errorf("lexicon %s: version is required", name)
	}
	if len(terms) == 0 {
		return Lexicon{}, fmt.Errorf("lexicon %s@%s: no terms", name, version)
	}
	cp := make([]string, len(terms))
	for i, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			return Lexicon{}, fmt.Errorf("lexicon %s@%s: term %d is blank", name, version, i)
		}
		cp[i] = t
	}
	return Lexicon{name: name, version: version, terms: cp}, nil
}

// MustLexicon is NewLexicon for package-level built-ins.
func MustLexicon(name, version string, terms []string) Lexicon {
	lex, err := NewLexicon(name, version, terms)
	if err != nil {
		panic(err)
	}
	return lex
}

// Name returns the category name, e.g. "systemic".
func (l Lexicon) Name() string { return l.name }

// Version returns the list version, e.g. "v1".
func (l Lexicon) Version() string { return l.version }

// ID returns "name@version".
func (l Lexicon) ID() string { return l.name + "@" + l.version }

// Terms returns a copy of the term list.
func (l Lexicon) Terms() []string {
	cp := make([]string, len(l.terms))
	copy(cp, l.terms)
	return cp
}

// Len returns the number of terms.
func (l Lexicon) Len() int { return len(l.terms) }

// #endregion lexicon

// #region built-ins

// SystemicV1 scores structural/institutional framing.
var SystemicV1 = MustLexicon("systemic", "v1", []string{
	"systemic", "structural", "institutions", "policy", "law enforcement",
	"courts", "sentencing", "healthcare", "education", "housing",
	"discrimination", "voter suppression", "war on drugs",
})

// GeneralizedV1 scores symmetric/generalizing framing.
var GeneralizedV1 = MustLexicon("generalized", "v1", []string{
	"any group", "regardless of", "social cohesion", "polarization",
	"us vs them", "reverse discrimination", "dialogue",
	"stereotyping in general", "all groups",
})

// DefaultLexicons returns the built-in lexicons in scoring order.
func DefaultLexicons() []Lexicon {
	return []Lexicon{SystemicV1, GeneralizedV1}
}

// #endregion built-ins
