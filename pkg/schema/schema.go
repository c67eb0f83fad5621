// Package schema defines the small surface confload needs from a schema
// engine: walking declared fields and parsing a merged document into a
// typed value. Engines plug in through adapters (see structschema and
// jsonschema); the loader never looks past these interfaces.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// MaxDepth bounds every recursive walk over a schema tree.
const MaxDepth = 100

// ErrNotObject is returned by Node.Keys for nodes that do not declare fields.
var ErrNotObject = errors.New("schema node is not an object")

// Kind classifies a schema node.
type Kind int

const (
	// KindScalar is any leaf type (string, number, boolean, ...).
	KindScalar Kind = iota
	// KindObject declares named fields.
	KindObject
	// KindArray declares an element type.
	KindArray
	// KindWrapper wraps exactly one inner node (optional, nullable, default, ...).
	KindWrapper
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindWrapper:
		return "wrapper"
	default:
		return "scalar"
	}
}

// Node is one level of a declared schema tree.
type Node interface {
	// Kind reports what the node declares.
	Kind() Kind
	// Keys lists object field names in declared order.
	Keys() ([]string, error)
	// Field returns the declared type of an object field.
	Field(key string) (Node, bool)
	// Inner returns the node a wrapper wraps.
	Inner() (Node, bool)
}

// Schema parses a merged configuration document into T.
type Schema[T any] interface {
	Root() Node
	// Parse coerces and validates data. Failures are reported as
	// *ValidationError.
	Parse(data map[string]any) (T, error)
}

// Issue is a single validation failure.
type Issue struct {
	Path    []string
	Message string
}

func (i Issue) String() string {
	if len(i.Path) == 0 {
		return i.Message
	}
	return strings.Join(i.Path, ".") + ": " + i.Message
}

// ValidationError carries every issue the engine reported.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "schema validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, i.String())
	}
	return fmt.Sprintf("schema validation failed: %s", strings.Join(parts, "; "))
}

// Unwrap peels wrapper layers off n until a non-wrapper node is reached.
func Unwrap(n Node) Node {
	return unwrap(n, 0)
}

func unwrap(n Node, depth int) Node {
	if n == nil || depth >= MaxDepth || n.Kind() != KindWrapper {
		return n
	}
	inner, ok := n.Inner()
	if !ok || inner == nil {
		return n
	}
	return unwrap(inner, depth+1)
}

// Lookup resolves the declared node at path below root, unwrapping at every
// step. The returned node is unwrapped too.
func Lookup(root Node, path []string) (Node, bool) {
	cur := Unwrap(root)
	for _, seg := range path {
		if cur == nil || cur.Kind() != KindObject {
			return nil, false
		}
		next, ok := cur.Field(seg)
		if !ok {
			return nil, false
		}
		cur = Unwrap(next)
	}
	return cur, cur != nil
}

// Paths returns the dot-joined path of every declared field, parents before
// children. Array element schemas are not entered.
func Paths(root Node) []string {
	segs := FieldPaths(root)
	out := make([]string, 0, len(segs))
	for _, p := range segs {
		out = append(out, strings.Join(p, "."))
	}
	return out
}

// FieldPaths is Paths without joining, for callers that need the raw
// segments (field names may contain dots).
func FieldPaths(root Node) [][]string {
	var out [][]string
	collect(Unwrap(root), nil, 0, &out)
	return out
}

func collect(n Node, prefix []string, depth int, out *[][]string) {
	if n == nil || depth >= MaxDepth || n.Kind() != KindObject {
		return
	}
	keys, err := n.Keys()
	if err != nil {
		return
	}
	for _, key := range keys {
		p := make([]string, len(prefix)+1)
		copy(p, prefix)
		p[len(prefix)] = key
		*out = append(*out, p)

		child, ok := n.Field(key)
		if !ok {
			continue
		}
		collect(Unwrap(child), p, depth+1, out)
	}
}
