// Package manifest parses pip-style requirements manifests: one requirement
// specifier per line, `#` comments, and `name>=version` constraint syntax.
//
// The narrator service delegates speech synthesis to a Python sidecar whose
// environment is provisioned from such a manifest. `narratorctl doctor`
// uses this package to verify the manifest is syntactically sound before
// anything tries to install from it.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Operator is a version comparison operator as used in a constraint,
// e.g. the ">=" in "flask>=2.3".
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpCompatible   Operator = "~="
	OpArbitrary    Operator = "==="
)

// Constraint is a single version comparison, e.g. ">=2.3.0".
type Constraint struct {
	Op      Operator `json:"op"`
	Version string   `json:"version"`
}

func (c Constraint) String() string {
	return string(c.Op) + c.Version
}

// Requirement is one parsed specifier line.
type Requirement struct {
	Name        string       `json:"name"`
	Extras      []string     `json:"extras,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
	Marker      string       `json:"marker,omitempty"`  // environment marker, carried opaquely
	Comment     string       `json:"comment,omitempty"` // trailing comment text
	Deferred    bool         `json:"deferred"`          // commented-out specifier ("# watchdog")
	Line        int          `json:"line"`
}

func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	for i, c := range r.Constraints {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(c.String())
	}
	return b.String()
}

// ParseError describes a line that failed to parse.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Manifest is the parsed form of a requirements file.
type Manifest struct {
	Requirements []Requirement
	Errors       []*ParseError
}

// Valid reports whether every non-comment, non-blank line parsed as a
// requirement specifier.
func (m *Manifest) Valid() bool {
	return len(m.Errors) == 0
}

// Find returns the requirement with the given (normalized) name, or nil.
// Deferred requirements are included.
func (m *Manifest) Find(name string) *Requirement {
	want := NormalizeName(name)
	for i := range m.Requirements {
		if NormalizeName(m.Requirements[i].Name) == want {
			return &m.Requirements[i]
		}
	}
	return nil
}

var (
	// Package names per PyPI naming rules: must start and end with a
	// letter or digit; dots, hyphens, and underscores allowed inside.
	nameRe = regexp.MustCompile(`^([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9])$`)

	// Longest operators first so "==" is not consumed as "=" + "=".
	constraintRe = regexp.MustCompile(`^\s*(===|==|!=|>=|<=|~=|>|<)\s*([^\s,]+)\s*$`)

	normalizeRe = regexp.MustCompile(`[-_.]+`)
)

// NormalizeName lowercases a package name and collapses runs of separator
// characters to a single hyphen, so "Pillow" and "pillow" compare equal.
func NormalizeName(name string) string {
	return normalizeRe.ReplaceAllString(strings.ToLower(name), "-")
}

// ParseFile reads and parses a requirements manifest from disk.
func ParseFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a requirements manifest. Parse never fails on malformed
// specifier lines; those are collected into Manifest.Errors so callers can
// report every problem at once.
//
// Comment lines are ignored, with one deliberate exception: a comment whose
// entire body is a single token that parses as a specifier (e.g. "# watchdog"
// or "# watchdog>=3.0") is kept as a Deferred requirement. Prose comments
// containing whitespace are never treated this way, so single-word prose
// comments should be avoided in manifests.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	seen := map[string]int{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			// A comment whose body is a single token that parses as a
			// specifier is a deferred requirement (e.g. "# watchdog").
			// Anything with whitespace is prose and is ignored.
			body := strings.TrimSpace(strings.TrimLeft(line, "# "))
			if body == "" || strings.ContainsAny(body, " \t") {
				continue
			}
			if req, err := parseSpecifier(body); err == nil {
				req.Deferred = true
				req.Line = lineNo
				m.Requirements = append(m.Requirements, *req)
			}
			continue
		}

		// Split off a trailing comment.
		comment := ""
		if idx := strings.Index(line, "#"); idx >= 0 {
			comment = strings.TrimSpace(line[idx+1:])
			line = strings.TrimSpace(line[:idx])
			if line == "" {
				continue
			}
		}

		req, err := parseSpecifier(line)
		if err != nil {
			m.Errors = append(m.Errors, &ParseError{Line: lineNo, Text: line, Err: err})
			continue
		}
		req.Comment = comment
		req.Line = lineNo

		norm := NormalizeName(req.Name)
		if prev, dup := seen[norm]; dup {
			m.Errors = append(m.Errors, &ParseError{
				Line: lineNo,
				Text: line,
				Err:  fmt.Errorf("duplicate requirement %q (first on line %d)", req.Name, prev),
			})
			continue
		}
		seen[norm] = lineNo

		m.Requirements = append(m.Requirements, *req)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return m, nil
}

// parseSpecifier parses a single requirement specifier:
//
//	name
//	name>=1.2
//	name[extra1,extra2]==2.0,<3
//	name>=1.0 ; python_version >= "3.10"
func parseSpecifier(s string) (*Requirement, error) {
	req := &Requirement{}

	// Environment marker: everything after the first ";" is carried opaquely.
	if idx := strings.Index(s, ";"); idx >= 0 {
		req.Marker = strings.TrimSpace(s[idx+1:])
		s = strings.TrimSpace(s[:idx])
	}
	if s == "" {
		return nil, fmt.Errorf("empty specifier")
	}

	// Split the name (with optional extras) from the constraint list.
	nameEnd := strings.IndexAny(s, "<>=!~")
	namePart := s
	constraintPart := ""
	if nameEnd >= 0 {
		namePart = strings.TrimSpace(s[:nameEnd])
		constraintPart = strings.TrimSpace(s[nameEnd:])
	}

	// Extras: name[extra1,extra2]
	if idx := strings.Index(namePart, "["); idx >= 0 {
		if !strings.HasSuffix(namePart, "]") {
			return nil, fmt.Errorf("unterminated extras list")
		}
		for _, extra := range strings.Split(namePart[idx+1:len(namePart)-1], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				return nil, fmt.Errorf("empty extra name")
			}
			req.Extras = append(req.Extras, extra)
		}
		namePart = namePart[:idx]
	}

	if !nameRe.MatchString(namePart) {
		return nil, fmt.Errorf("invalid package name %q", namePart)
	}
	req.Name = namePart

	if constraintPart != "" {
		for _, part := range strings.Split(constraintPart, ",") {
			match := constraintRe.FindStringSubmatch(part)
			if match == nil {
				return nil, fmt.Errorf("invalid version constraint %q", strings.TrimSpace(part))
			}
			if !validVersion(match[2]) {
				return nil, fmt.Errorf("invalid version %q", match[2])
			}
			req.Constraints = append(req.Constraints, Constraint{
				Op:      Operator(match[1]),
				Version: match[2],
			})
		}
	}

	return req, nil
}

// validVersion accepts release segments with optional pre/post/dev suffixes
// and trailing wildcards ("2.*"). It deliberately stays permissive: the
// installer is the authority on full version syntax.
var versionRe = regexp.MustCompile(`^[0-9]+(\.([0-9]+|\*))*([._-]?[A-Za-z]+[._-]?[0-9]*)*(\+[A-Za-z0-9.]+)?$`)

func validVersion(v string) bool {
	return versionRe.MatchString(v)
}
