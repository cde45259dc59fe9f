package matching

import (
	"fmt"
	"sort"
	"strings"
)

// Options are the run-level matching overrides accepted from callers.
// AllowPartial is the only caller-level override; per-line flags take
// precedence when present.
type Options struct {
	AllowPartial bool
}

// InvalidOptionsError indicates caller misconfiguration of match options. It
// is fatal to the whole reconcile call and is raised before any line is
// processed.
type InvalidOptionsError struct {
	Reason string
}

func (e *InvalidOptionsError) Error() string {
	return fmt.Sprintf("invalid match options: %s", e.Reason)
}

// ParseOptions validates a raw options document. Unrecognized keys and a
// non-boolean allow_partial are rejected; a nil map yields defaults.
func ParseOptions(raw map[string]any) (Options, error) {
	var opts Options
	if raw == nil {
		return opts, nil
	}

	var unknown []string
	for key, value := range raw {
		switch key {
		case "allow_partial":
			b, ok := value.(bool)
			if !ok {
				return Options{}, &InvalidOptionsError{
					Reason: fmt.Sprintf("allow_partial must be a boolean, got %T", value),
				}
			}
			opts.AllowPartial = b
		default:
			unknown = append(unknown, key)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Options{}, &InvalidOptionsError{
			Reason: fmt.Sprintf("unrecognized keys: %s", strings.Join(unknown, ", ")),
		}
	}

	return opts, nil
}
