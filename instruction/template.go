// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package instruction compiles prompt templates by substituting {{name}}
// placeholders from a variable scope.
//
// Placeholder syntax:
//
//	{{name}}   - substitutes the value of variable "name" from scope
//
// Missing variables leave the placeholder intact unless StrictVariables is
// set, in which case resolution fails hard. Non-string values are
// JSON-stringified before substitution. {{node.field}} is not supported;
// only whole-variable interpolation.
package instruction

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// placeholderRegex matches {{name}}: double braces around content that
// itself contains no braces.
var placeholderRegex = regexp.MustCompile(`{{[^{}]*}}`)

// Scope resolves variable names to values for template rendering.
type Scope interface {
	Get(name string) (any, bool)
}

// MapScope is a Scope backed by a plain map.
type MapScope map[string]any

// Get implements Scope.
func (m MapScope) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Template is a compiled instruction template.
type Template struct {
	raw string
}

// New wraps a raw template string.
func New(raw string) *Template { return &Template{raw: raw} }

// Raw returns the unexpanded template text.
func (t *Template) Raw() string { return t.raw }

// Options controls rendering behavior.
type Options struct {
	// StrictVariables, when true, fails rendering on any unresolved
	// placeholder instead of leaving it intact.
	StrictVariables bool
}

// Render substitutes every {{name}} placeholder in t against scope.
func (t *Template) Render(scope Scope, opts Options) (string, error) {
	return Inject(t.raw, scope, opts)
}

// Inject is the main entry point for template resolution: it walks every
// placeholder match in template, resolves it against scope, and rebuilds the
// string preserving all non-placeholder text verbatim.
func Inject(template string, scope Scope, opts Options) (string, error) {
	if template == "" {
		return "", nil
	}

	var out strings.Builder
	lastIndex := 0
	matches := placeholderRegex.FindAllStringIndex(template, -1)

	for _, m := range matches {
		start, end := m[0], m[1]
		out.WriteString(template[lastIndex:start])

		replacement, err := resolvePlaceholder(template[start:end], scope, opts)
		if err != nil {
			return "", err
		}
		out.WriteString(replacement)

		lastIndex = end
	}
	out.WriteString(template[lastIndex:])
	return out.String(), nil
}

// resolvePlaceholder resolves a single {{name}} match.
func resolvePlaceholder(match string, scope Scope, opts Options) (string, error) {
	name := strings.TrimSpace(strings.Trim(match, "{}"))

	if !isIdentifier(name) {
		// Not a valid variable name (e.g. contains a dot, a nested-field
		// reference, or stray punctuation): treated as literal text, never
		// as an error. {{node.field}} interpolation is intentionally not
		// supported; only whole-variable substitution is.
		return match, nil
	}

	value, ok := scope.Get(name)
	if !ok {
		if opts.StrictVariables {
			return "", fmt.Errorf("instruction: unresolved variable %q", name)
		}
		return match, nil
	}

	return stringify(value), nil
}

// stringify renders a resolved value for substitution: strings pass through
// unchanged, everything else is JSON-stringified.
func stringify(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(b)
}

// isIdentifier reports whether s is a valid bare variable name: it must
// start with a letter or underscore and contain only letters, digits, and
// underscores thereafter. Names containing "." (as in attempted
// {{node.field}} access) are deliberately rejected here.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if i == 0 {
			if !isLetter && r != '_' {
				return false
			}
			continue
		}
		if !isLetter && !isDigit && r != '_' {
			return false
		}
	}
	return true
}

// HasPlaceholders reports whether template contains any {{...}} placeholder.
func HasPlaceholders(template string) bool {
	return placeholderRegex.MatchString(template)
}

// ListPlaceholders returns the distinct variable names referenced by
// template, in first-occurrence order. Non-identifier matches are omitted.
func ListPlaceholders(template string) []string {
	matches := placeholderRegex.FindAllString(template, -1)
	var names []string
	seen := make(map[string]bool)
	for _, m := range matches {
		name := strings.TrimSpace(strings.Trim(m, "{}"))
		if !isIdentifier(name) || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
