package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// renderTemplate expands a payload template against a value context.
//
// Template text is literal hex interleaved with {{ expression }} blocks.
// An expression is either a conditional ("a if cond else b") or a token
// followed by pipe filters:
//
//	{{ value | int | format('02X') }}
//	{{ '01' if value else '00' }}
//
// Tokens resolve to quoted literals, context values, or bare integers.
// The rendered result is uppercased with whitespace stripped.
func renderTemplate(template string, ctx map[string]any) (string, error) {
	text := strings.ReplaceAll(template, "\n", "")
	var out strings.Builder

	idx := 0
	for idx < len(text) {
		start := strings.Index(text[idx:], "{{")
		if start == -1 {
			out.WriteString(text[idx:])
			break
		}
		start += idx
		out.WriteString(text[idx:start])

		end := strings.Index(text[start:], "}}")
		if end == -1 {
			return "", fmt.Errorf("%w: unterminated expression in %q", ErrBadTemplate, template)
		}
		end += start

		rendered, err := evaluateExpression(strings.TrimSpace(text[start+2:end]), ctx)
		if err != nil {
			return "", err
		}
		out.WriteString(rendered)
		idx = end + 2
	}

	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(out.String()), " ", "")), nil
}

func evaluateExpression(expression string, ctx map[string]any) (string, error) {
	if strings.Contains(expression, " if ") && strings.Contains(expression, " else ") {
		truePart, remainder, _ := strings.Cut(expression, " if ")
		conditionPart, falsePart, _ := strings.Cut(remainder, " else ")

		condition, err := resolveToken(strings.TrimSpace(conditionPart), ctx)
		if err != nil {
			return "", err
		}

		chosen := falsePart
		if truthy(condition) {
			chosen = truePart
		}
		value, err := resolveToken(strings.TrimSpace(chosen), ctx)
		if err != nil {
			return "", err
		}
		return stringify(value), nil
	}

	parts := strings.Split(expression, "|")
	value, err := resolveToken(strings.TrimSpace(parts[0]), ctx)
	if err != nil {
		return "", err
	}

	for _, part := range parts[1:] {
		filter := strings.TrimSpace(part)
		switch {
		case filter == "int":
			value, err = toInt(value)
			if err != nil {
				return "", err
			}
		case strings.HasPrefix(filter, "format"):
			open := strings.Index(filter, "(")
			closing := strings.LastIndex(filter, ")")
			if open == -1 || closing == -1 || closing < open {
				return "", fmt.Errorf("%w: invalid format expression %q", ErrBadTemplate, filter)
			}
			specToken, err := resolveToken(strings.TrimSpace(filter[open+1:closing]), ctx)
			if err != nil {
				return "", err
			}
			value, err = formatValue(value, stringify(specToken))
			if err != nil {
				return "", err
			}
		default:
			return "", fmt.Errorf("%w: %q", ErrUnsupportedFilter, filter)
		}
	}

	return stringify(value), nil
}

func resolveToken(token string, ctx map[string]any) (any, error) {
	if len(token) >= 2 {
		if (token[0] == '\'' && token[len(token)-1] == '\'') ||
			(token[0] == '"' && token[len(token)-1] == '"') {
			return token[1 : len(token)-1], nil
		}
	}
	if value, ok := ctx[token]; ok {
		return value, nil
	}
	if n, err := strconv.Atoi(token); err == nil {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
}

// toInt coerces context values to an integer the way the template's int
// filter expects: bools become 0/1, numeric strings are parsed.
func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrBadTemplate, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: cannot coerce %T to int", ErrBadTemplate, value)
	}
}

// formatValue applies a width/zero-pad format specification to an integer,
// e.g. "02X" renders 11 as "0B".
func formatValue(value any, spec string) (string, error) {
	n, err := toInt(value)
	if err != nil {
		return "", err
	}

	body := spec
	verb := byte('d')
	if len(body) > 0 {
		last := body[len(body)-1]
		if last == 'd' || last == 'x' || last == 'X' || last == 'b' {
			verb = last
			body = body[:len(body)-1]
		}
	}

	zeroPad := strings.HasPrefix(body, "0")
	widthText := strings.TrimPrefix(body, "0")
	width := 0
	if widthText != "" {
		width, err = strconv.Atoi(widthText)
		if err != nil {
			return "", fmt.Errorf("%w: invalid format spec %q", ErrBadTemplate, spec)
		}
	}

	format := "%"
	if zeroPad {
		format += "0"
	}
	if width > 0 {
		format += strconv.Itoa(width)
	}
	format += string(verb)

	return fmt.Sprintf(format, n), nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case nil:
		return false
	default:
		return true
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprintf("%v", v)
	}
}
