// Package script translates validated parameter sets into executable
// automation-script payloads. Two strategies coexist: named templates with
// placeholder substitution (mutations on folders, projects, tags, tasks)
// and a declarative query descriptor compiled directly into a listing
// script (read-heavy task/project paths).
//
// Builders are pure: they perform no execution and have no side effects.
package script

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Template is a named script body with ${key} placeholders.
type Template struct {
	Name string
	Body string
}

var placeholderRe = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)

// Fill substitutes every placeholder with its value. It fails fast when any
// placeholder has no value: a script referencing an unresolved name must
// never reach the automation bridge.
func (t Template) Fill(values map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(t.Body, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := values[key]
		if !ok {
			missing = append(missing, key)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("template '%s' missing substitution values: %s",
			t.Name, strings.Join(missing, ", "))
	}
	return out, nil
}

// JSString renders s as a quoted, escaped JavaScript string literal.
func JSString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// JSValue renders v as a JavaScript literal. Strings are quoted; nil
// becomes null; everything else is JSON-encoded.
func JSValue(v interface{}) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("value %v cannot be rendered: %w", v, err)
	}
	return string(b), nil
}
