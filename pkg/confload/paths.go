package confload

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Category selects the default directory and file name of a config source.
type Category string

const (
	// CategoryConfig resolves to config/config.json by default.
	CategoryConfig Category = "config"
	// CategorySecrets resolves to secrets/secrets.json by default.
	CategorySecrets Category = "secrets"
)

var pathListSep = regexp.MustCompile(`\s+|,\s*`)

// PathRequest describes where a category of files should come from.
type PathRequest struct {
	Category Category
	// Paths is used verbatim when non-empty.
	Paths []string
	// List is a comma or whitespace separated list, used when Paths is empty.
	List string
	// Env prefixes the default file name ("prod" -> prod.config.json).
	Env string
	// Dir anchors the default path. Empty means the working directory.
	Dir string
}

// ResolvePaths returns the ordered files to read for req. Blank entries are
// dropped. It performs no I/O beyond looking up the working directory.
func ResolvePaths(req PathRequest) []string {
	var paths []string
	switch {
	case len(req.Paths) > 0:
		paths = req.Paths
	case req.List != "":
		paths = SplitPathList(req.List)
	default:
		paths = []string{defaultPath(req)}
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SplitPathList splits "a.json, b.json c.json" into its parts.
func SplitPathList(s string) []string {
	parts := pathListSep.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultPath(req PathRequest) string {
	dir := req.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			wd = "."
		}
		dir = wd
	}
	name := string(req.Category) + ".json"
	if req.Env != "" {
		name = req.Env + "." + name
	}
	return filepath.Join(dir, string(req.Category), name)
}
