package confload

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/lc/confload/pkg/schema"
)

// DefaultDelimiter joins nested field names into env variable names:
// server.port is read from server___port.
const DefaultDelimiter = "___"

const logValueLimit = 50

// LookupEnv reads one environment variable.
type LookupEnv func(key string) (string, bool)

// EnvName returns the variable consulted for a field path.
func EnvName(path []string, delimiter string) string {
	return strings.Join(path, delimiter)
}

// ApplyOverrides writes every non-empty env variable named after a schema
// path into acc. Values for object and array fields are decoded as JSON;
// everything else is stored as the raw string. It returns the number of
// overrides applied.
func ApplyOverrides(acc map[string]any, root schema.Node, delimiter string, lookup LookupEnv, log *zap.SugaredLogger) (int, error) {
	if delimiter == "" {
		return 0, ErrEmptyDelimiter
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	applied := 0
	for _, path := range schema.FieldPaths(root) {
		name := EnvName(path, delimiter)
		raw, ok := lookup(name)
		if !ok || raw == "" {
			continue
		}

		var value any = raw
		if target, found := schema.Lookup(root, path); found {
			switch target.Kind() {
			case schema.KindObject, schema.KindArray:
				if err := json.Unmarshal([]byte(raw), &value); err != nil {
					return applied, &EnvParseError{Name: name, Err: err}
				}
			}
		}

		setPath(acc, path, value)
		applied++
		log.Debugw("applied env override", "name", name, "value", truncate(raw, logValueLimit))
	}
	return applied, nil
}

// setPath stores value at path, creating or replacing intermediate objects.
func setPath(acc map[string]any, path []string, value any) {
	cur := acc
	for _, seg := range path[:len(path)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
