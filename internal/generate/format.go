package generate

import (
	"fmt"
	"strings"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
)

// formatMap substitutes {name} placeholders in template from env. Doubled
// braces are literals. Lazy values are forced only for placeholders that
// actually occur; everything else passes through fmt.Sprint.
func formatMap(template string, env map[string]any) (string, error) {
	var out strings.Builder
	out.Grow(len(template))

	for i := 0; i < len(template); {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				out.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", apperrors.Newf(apperrors.CategoryFormat, apperrors.SeverityError,
					"unterminated placeholder in template %q", template)
			}
			name := template[i+1 : i+1+end]
			value, ok := env[name]
			if !ok {
				return "", apperrors.UnknownPlaceholder(name, template)
			}
			out.WriteString(resolveValue(value))
			i += end + 2
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				out.WriteByte('}')
				i += 2
				continue
			}
			return "", apperrors.Newf(apperrors.CategoryFormat, apperrors.SeverityError,
				"stray closing brace in template %q", template)
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), nil
}

func resolveValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case *Lazy:
		return v.Value()
	default:
		return fmt.Sprint(v)
	}
}
