// Package jsonschema adapts JSON Schema documents to the schema interfaces.
//
// Validation is delegated to santhosh-tekuri/jsonschema. The document itself
// is also kept as an ordered yaml.Node tree, which is what the walkers use:
// property order must follow the document, and a compiled schema only keeps
// properties in a map.
//
// Wrapper layers are `$ref` (local JSON pointers only) and `anyOf`, `oneOf`
// or `allOf` combinators that leave exactly one non-null branch, which is how
// nullable and optional types are usually spelled. A node that declares its
// own `type`, `properties` or `items` is never a wrapper; its `$ref` and
// combinators only add constraints.
//
// Before validation, missing properties receive their `default`, and string
// values are coerced to the declared integer, number or boolean type when the
// schema does not also allow strings. Integer strings beyond ±2^53 become
// json.Number rather than float64 so no digits are lost.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	jsv "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/lc/confload/pkg/schema"
)

const resourceURL = "https://confload.local/schema.json"

// maxExactInt is the largest integer a float64 holds exactly.
const maxExactInt = 1 << 53

// ErrInvalidSchema is returned by New for documents that are not a JSON
// Schema object.
var ErrInvalidSchema = errors.New("jsonschema: invalid schema document")

// Schema validates merged configuration against a JSON Schema document and
// decodes the result into T.
type Schema[T any] struct {
	root     *yaml.Node
	compiled *jsv.Schema
}

var _ schema.Schema[map[string]any] = (*Schema[map[string]any])(nil)

// New compiles raw, a JSON Schema document.
func New[T any](raw []byte) (*Schema[T], error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidSchema)
	}

	// Raw tabs only occur as insignificant whitespace in valid JSON, and
	// YAML refuses them for indentation.
	var doc yaml.Node
	if err := yaml.Unmarshal(bytes.ReplaceAll(raw, []byte("\t"), []byte(" ")), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidSchema)
	}

	c := jsv.NewCompiler()
	c.Draft = jsv.Draft2020
	if err := c.AddResource(resourceURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	compiled, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	return &Schema[T]{root: doc.Content[0], compiled: compiled}, nil
}

// Root returns the top-level schema node.
func (s *Schema[T]) Root() schema.Node {
	return node{root: s.root, n: s.root}
}

// Parse fills defaults, coerces strings, validates and decodes data.
func (s *Schema[T]) Parse(data map[string]any) (T, error) {
	var out T

	root := s.Root()
	filled, err := applyDefaults(data, root, 0)
	if err != nil {
		return out, err
	}
	coerced := coerce(filled, root, 0)

	if err := s.compiled.Validate(coerced); err != nil {
		var verr *jsv.ValidationError
		if !errors.As(err, &verr) {
			return out, fmt.Errorf("jsonschema: validating: %w", err)
		}
		return out, &schema.ValidationError{Issues: issues(verr)}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return out, fmt.Errorf("jsonschema: building decoder: %w", err)
	}
	if err := dec.Decode(coerced); err != nil {
		var zero T
		return zero, &schema.ValidationError{Issues: []schema.Issue{{Message: err.Error()}}}
	}
	return out, nil
}

// node is one schema object inside the document.
type node struct {
	root *yaml.Node
	n    *yaml.Node
}

func (n node) get(key string) *yaml.Node {
	return mappingValue(n.n, key)
}

func (n node) Kind() schema.Kind {
	if n.n == nil || n.n.Kind != yaml.MappingNode {
		return schema.KindScalar
	}
	if _, ok := n.Inner(); ok {
		return schema.KindWrapper
	}
	types := n.types()
	switch {
	case types["object"] || (len(types) == 0 && n.get("properties") != nil):
		return schema.KindObject
	case types["array"] || (len(types) == 0 && (n.get("items") != nil || n.get("prefixItems") != nil)):
		return schema.KindArray
	default:
		return schema.KindScalar
	}
}

func (n node) Keys() ([]string, error) {
	if n.Kind() != schema.KindObject {
		return nil, schema.ErrNotObject
	}
	props := n.get("properties")
	if props == nil {
		return []string{}, nil
	}
	if props.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: properties is not an object", ErrInvalidSchema)
	}
	keys := make([]string, 0, len(props.Content)/2)
	for i := 0; i+1 < len(props.Content); i += 2 {
		keys = append(keys, props.Content[i].Value)
	}
	return keys, nil
}

func (n node) Field(key string) (schema.Node, bool) {
	props := n.get("properties")
	if props == nil {
		return nil, false
	}
	v := mappingValue(props, key)
	if v == nil {
		return nil, false
	}
	return node{root: n.root, n: v}, true
}

func (n node) Inner() (schema.Node, bool) {
	if n.n == nil || n.n.Kind != yaml.MappingNode || n.declaresShape() {
		return nil, false
	}
	if ref := n.get("$ref"); ref != nil {
		target := resolvePointer(n.root, ref.Value)
		if target == nil {
			return nil, false
		}
		return node{root: n.root, n: target}, true
	}
	if branch, ok := n.singleBranch(); ok {
		return node{root: n.root, n: branch}, true
	}
	return nil, false
}

// declaresShape reports whether the node spells out its own type.
func (n node) declaresShape() bool {
	for _, key := range []string{"type", "properties", "items", "prefixItems"} {
		if n.get(key) != nil {
			return true
		}
	}
	return false
}

// items returns the array element schema, if one is declared.
func (n node) items() (node, bool) {
	it := n.get("items")
	if it == nil || it.Kind != yaml.MappingNode {
		return node{}, false
	}
	return node{root: n.root, n: it}, true
}

// singleBranch reports the only non-null branch of a combinator.
func (n node) singleBranch() (*yaml.Node, bool) {
	for _, key := range []string{"allOf", "anyOf", "oneOf"} {
		seq := n.get(key)
		if seq == nil || seq.Kind != yaml.SequenceNode {
			continue
		}
		var found *yaml.Node
		count := 0
		for _, branch := range seq.Content {
			if isNullSchema(branch) {
				continue
			}
			found = branch
			count++
		}
		if count == 1 {
			return found, true
		}
	}
	return nil, false
}

func (n node) types() map[string]bool {
	out := map[string]bool{}
	t := n.get("type")
	if t == nil {
		return out
	}
	switch t.Kind {
	case yaml.ScalarNode:
		out[t.Value] = true
	case yaml.SequenceNode:
		for _, v := range t.Content {
			out[v.Value] = true
		}
	}
	return out
}

func isNullSchema(n *yaml.Node) bool {
	if n == nil || n.Kind != yaml.MappingNode {
		return false
	}
	t := mappingValue(n, "type")
	return t != nil && t.Kind == yaml.ScalarNode && t.Value == "null"
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// resolvePointer follows a local "#/..." reference inside the document.
func resolvePointer(root *yaml.Node, ref string) *yaml.Node {
	if !strings.HasPrefix(ref, "#") {
		return nil
	}
	ptr := strings.TrimPrefix(ref, "#")
	cur := root
	if ptr == "" {
		return cur
	}
	for _, tok := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		switch cur.Kind {
		case yaml.MappingNode:
			cur = mappingValue(cur, tok)
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(cur.Content) {
				return nil
			}
			cur = cur.Content[idx]
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// applyDefaults copies data, adding declared defaults for missing properties.
func applyDefaults(data map[string]any, n schema.Node, depth int) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	obj, ok := schema.Unwrap(n).(node)
	if !ok || depth >= schema.MaxDepth || obj.Kind() != schema.KindObject {
		return out, nil
	}
	keys, err := obj.Keys()
	if err != nil {
		return out, nil
	}
	for _, key := range keys {
		child, _ := obj.Field(key)
		cn := child.(node)
		if _, present := out[key]; !present {
			if def := firstDefault(cn); def != nil {
				v, err := decodeDefault(def)
				if err != nil {
					return nil, fmt.Errorf("jsonschema: default for %q: %w", key, err)
				}
				out[key] = v
			}
		}
		if nested, isMap := out[key].(map[string]any); isMap {
			filled, err := applyDefaults(nested, cn, depth+1)
			if err != nil {
				return nil, err
			}
			out[key] = filled
		}
	}
	return out, nil
}

// firstDefault finds a default on the node or any wrapper layer below it.
func firstDefault(n node) *yaml.Node {
	var cur schema.Node = n
	for i := 0; i < schema.MaxDepth && cur != nil; i++ {
		c := cur.(node)
		if def := c.get("default"); def != nil {
			return def
		}
		if c.Kind() != schema.KindWrapper {
			return nil
		}
		cur, _ = c.Inner()
	}
	return nil
}

// decodeDefault turns a YAML-decoded default into plain JSON values.
func decodeDefault(def *yaml.Node) (any, error) {
	var v any
	if err := def.Decode(&v); err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// coerce converts string leaves to the scalar type the schema declares.
func coerce(v any, n schema.Node, depth int) map[string]any {
	out, _ := coerceValue(v, n, depth).(map[string]any)
	return out
}

func coerceValue(v any, n schema.Node, depth int) any {
	if depth >= schema.MaxDepth {
		return v
	}
	un, ok := schema.Unwrap(n).(node)
	if !ok {
		return v
	}
	switch val := v.(type) {
	case map[string]any:
		if un.Kind() != schema.KindObject {
			return val
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			if child, ok := un.Field(k); ok {
				out[k] = coerceValue(item, child, depth+1)
				continue
			}
			out[k] = item
		}
		return out
	case []any:
		elem, ok := un.items()
		if !ok {
			return val
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = coerceValue(item, elem, depth+1)
		}
		return out
	case string:
		return coerceString(val, un.types())
	default:
		return v
	}
}

func coerceString(s string, types map[string]bool) any {
	if types["string"] || len(types) == 0 {
		return s
	}
	trimmed := strings.TrimSpace(s)
	if types["integer"] {
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			if i > maxExactInt || i < -maxExactInt {
				return json.Number(strconv.FormatInt(i, 10))
			}
			return float64(i)
		}
	}
	if types["number"] {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
	}
	if types["boolean"] {
		if b, err := strconv.ParseBool(trimmed); err == nil {
			return b
		}
	}
	if types["null"] && trimmed == "null" {
		return nil
	}
	return s
}

// issues flattens a validation error tree into its leaf causes.
func issues(verr *jsv.ValidationError) []schema.Issue {
	var out []schema.Issue
	var walk func(e *jsv.ValidationError, depth int)
	walk = func(e *jsv.ValidationError, depth int) {
		if len(e.Causes) == 0 || depth >= schema.MaxDepth {
			out = append(out, schema.Issue{Path: instancePath(e.InstanceLocation), Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c, depth+1)
		}
	}
	walk(verr, 0)
	return out
}

func instancePath(loc string) []string {
	loc = strings.TrimPrefix(loc, "/")
	if loc == "" {
		return nil
	}
	parts := strings.Split(loc, "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return parts
}
