package confload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
)

// maxDepth bounds recursion over loaded documents.
const maxDepth = 100

// unsafeKeys never survive loading a file.
var unsafeKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// FileReader reads a whole file. A missing file must satisfy
// errors.Is(err, fs.ErrNotExist).
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// ReadContent loads the JSON object stored at path. Missing and blank files
// yield an empty map.
func ReadContent(ctx context.Context, r FileReader, path string) (map[string]any, error) {
	obj, _, err := readContent(ctx, r, path)
	return obj, err
}

// readContent is ReadContent that also reports whether the file existed.
func readContent(ctx context.Context, r FileReader, path string) (map[string]any, bool, error) {
	raw, err := r.ReadFile(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, false, nil
		}
		return nil, false, &ReadError{Path: path, Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, true, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, true, &ParseError{Path: path, Err: err}
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, true, &TypeMismatchError{Path: path, Actual: jsonType(doc)}
	}

	clean, err := sanitize(obj, 0)
	if err != nil {
		return nil, true, &ParseError{Path: path, Err: err}
	}
	return clean, true, nil
}

// Sanitize returns a copy of obj without __proto__, constructor and
// prototype keys at any object level. Objects inside arrays are left as is.
func Sanitize(obj map[string]any) (map[string]any, error) {
	return sanitize(obj, 0)
}

func sanitize(obj map[string]any, depth int) (map[string]any, error) {
	if depth >= maxDepth {
		return nil, fmt.Errorf("objects nested deeper than %d levels", maxDepth)
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if _, bad := unsafeKeys[k]; bad {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			clean, err := sanitize(nested, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = clean
			continue
		}
		out[k] = v
	}
	return out, nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
