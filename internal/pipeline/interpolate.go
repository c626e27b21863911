package pipeline

import (
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// Interpolate resolves every "${...}" reference inside s against vars,
// where the text between the braces is a JSONPath expression evaluated
// by jsonpath.Get (e.g. "${$.build.version}"). A reference that fails to
// resolve is left untouched rather than aborting the whole interpolation,
// since one missing variable should not fail an entire step environment.
func Interpolate(s string, vars map[string]any) string {
	if !strings.Contains(s, "${") {
		return s
	}

	var out strings.Builder
	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "${")
		if start < 0 {
			out.WriteString(s[i:])
			break
		}
		start += i
		out.WriteString(s[i:start])

		end := strings.Index(s[start:], "}")
		if end < 0 {
			out.WriteString(s[start:])
			break
		}
		end += start

		expr := s[start+2 : end]
		if val, err := resolve(expr, vars); err == nil {
			out.WriteString(fmt.Sprint(val))
		} else {
			out.WriteString(s[start : end+1])
		}
		i = end + 1
	}
	return out.String()
}

// InterpolateEnv applies Interpolate to every value in env, leaving keys
// untouched.
func InterpolateEnv(env map[string]string, vars map[string]any) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = Interpolate(v, vars)
	}
	return out
}

func resolve(expr string, vars map[string]any) (any, error) {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "$") {
		expr = "$." + expr
	}
	return jsonpath.Get(expr, vars)
}
