package actionparse

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseBody turns an element's raw body text into a structured map, per the
// indentation-based quoting rules of the action surface: single-quoted strings
// are literal, double-quoted strings process backslash escapes, "|"
// introduces a block scalar, and "-"-prefixed two-space-indented lines are
// lists. All of that is standard YAML mapping syntax, so the body is
// dedented and handed to yaml.v3 rather than hand-rolling an indentation
// parser.
func parseBody(raw string) (map[string]any, error) {
	body := dedent(strings.TrimLeft(raw, "\n"))
	if strings.TrimSpace(body) == "" {
		return map[string]any{}, nil
	}

	body = normalizeDollarEscape(body)

	var payload map[string]any
	if err := yaml.Unmarshal([]byte(body), &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// normalizeDollarEscape rewrites "\$" to a literal "$" inside double-quoted
// scalars only. YAML has no escape for "$" since the character carries no
// meaning in the format, but the action surface requires double-quoted bodies
// to accept "\$" as an explicit escape alongside "\n", "\t", and "\\". It
// must not touch single-quoted spans, where no escape processing applies.
func normalizeDollarEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inDouble := false
	inSingle := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case inDouble:
			if c == '\\' && i+1 < len(s) && s[i+1] == '$' {
				b.WriteByte('$')
				i++
				continue
			}
			if c == '\\' && i+1 < len(s) {
				b.WriteByte(c)
				b.WriteByte(s[i+1])
				i++
				continue
			}
			if c == '"' {
				inDouble = false
			}
			b.WriteByte(c)
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
			b.WriteByte(c)
		default:
			switch c {
			case '"':
				inDouble = true
			case '\'':
				inSingle = true
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

// field helpers used by validate.go to read a loosely-typed YAML map with a
// descriptive error on mismatch, rather than panicking on a type assertion.

func str(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", t), true
	default:
		return "", false
	}
}

func strOr(m map[string]any, key, def string) string {
	if v, ok := str(m, key); ok {
		return v
	}
	return def
}

func boolOr(m map[string]any, key string, def bool) bool {
	v, ok := m[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func intOr(m map[string]any, key string, def int) int {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return def
	}
}

func strSlice(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mapSlice(m map[string]any, key string) []map[string]any {
	v, ok := m[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if mm, ok := item.(map[string]any); ok {
			out = append(out, mm)
		}
	}
	return out
}
