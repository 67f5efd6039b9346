package secret

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMissingVariable is wrapped by ExpandStrict when a referenced name is
// not defined.
var ErrMissingVariable = errors.New("secret: missing variable")

// LookupFunc returns the value of a name and whether it is defined.
type LookupFunc func(name string) (string, bool)

var bracedVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandStrict expands ${NAME} references in s using lookup.
//
// Semantics:
//   - `${NAME}` is replaced by lookup(NAME); an undefined NAME is an error.
//   - `$${` emits a literal `${` (escape hatch).
//   - Bare `$NAME` is left as is.
func ExpandStrict(s string, lookup LookupFunc) (string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	const escaped = "\x00PROMPTRELAY_BRACE\x00"
	s = strings.ReplaceAll(s, "$${", escaped)

	var missing []string
	seen := make(map[string]bool)
	out := bracedVarPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := m[2 : len(m)-1]
		v, ok := lookup(name)
		if !ok {
			if !seen[name] {
				seen[name] = true
				missing = append(missing, name)
			}
			return m
		}
		return v
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", errors.Wrapf(ErrMissingVariable, "%s", strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(out, escaped, "${"), nil
}

// ExpandEnvStrict expands ${NAME} references against the process environment.
func ExpandEnvStrict(s string) (string, error) {
	return ExpandStrict(s, os.LookupEnv)
}
