// Package overrides rewrites top-level variable assignments in a design
// source so it evaluates with the caller's parameter values. It is pure:
// no error path, unsupported value types fall back to a generic literal
// encoder.
package overrides

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"scadd/pkg/types"
)

// Result reports how each parameter landed in the output text.
type Result struct {
	// Text is the rewritten program.
	Text string
	// Replaced lists names whose existing assignment was rewritten in place.
	Replaced []string
	// Prepended lists names with no existing assignment; a new assignment
	// block was added at the top of the program.
	Prepended []string
}

// Apply rewrites source so each name in params is assigned its value.
// Existing top-level assignments (lines of the form `<indent><name> = <expr>;`,
// optionally trailed by a comment) are rewritten in place, preserving
// indentation and the trailer. Names with no existing assignment are
// prepended once, as a block, so they execute before any use. Applying
// the result to itself with the same params is a no-op.
func Apply(source string, params types.Params) Result {
	res := Result{Text: source}
	if len(params) == 0 {
		return res
	}
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)

	lines := strings.Split(source, "\n")
	var missing []string
	for _, name := range names {
		re := assignmentPattern(name)
		replaced := false
		for i, line := range lines {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			lines[i] = m[1] + name + " = " + FormatValue(params[name]) + ";" + m[2]
			replaced = true
			break
		}
		if replaced {
			res.Replaced = append(res.Replaced, name)
		} else {
			missing = append(missing, name)
		}
	}

	text := strings.Join(lines, "\n")
	if len(missing) > 0 {
		var b strings.Builder
		for _, name := range missing {
			b.WriteString(name)
			b.WriteString(" = ")
			b.WriteString(FormatValue(params[name]))
			b.WriteString(";\n")
		}
		text = b.String() + text
		res.Prepended = missing
	}
	res.Text = text
	return res
}

// assignmentPattern matches a top-level assignment to name. Group 1 is
// the indentation, group 2 everything after the statement terminator
// (typically a trailing comment).
func assignmentPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`^([ \t]*)` + regexp.QuoteMeta(name) + `\s*=\s*.*?;(.*)$`)
}

// FormatValue renders a parameter value as a source literal. Strings are
// double-quoted with embedded quotes and backslashes escaped; numbers
// and booleans are bare literals; anything else goes through the JSON
// encoder, whose array/object syntax is valid in the target dialect.
func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
		return `"` + r.Replace(t) + `"`
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case json.Number:
		return t.String()
	case nil:
		return "undef"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "undef"
		}
		return string(b)
	}
}
