// Package structschema adapts plain Go structs to the schema interfaces.
//
// Field names come from `json` tags (falling back to the Go field name),
// pointer fields and fields carrying a `default:"..."` tag act as wrapper
// layers, and validation rules are `validate:"..."` tags understood by
// go-playground/validator. Decoding is weakly typed, so the string values
// produced by environment overrides are coerced into numbers, booleans and
// durations. Numbers with a fractional part are rejected for integer
// fields rather than truncated.
package structschema

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/lc/confload/pkg/schema"
)

// ErrNotStruct is returned by New when T is not a struct type.
var ErrNotStruct = errors.New("structschema: type is not a struct")

var errDynamicKeys = errors.New("structschema: map fields have no declared keys")

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// Schema validates merged configuration into values of T.
type Schema[T any] struct {
	typ      reflect.Type
	validate *validator.Validate
}

var _ schema.Schema[struct{}] = (*Schema[struct{}])(nil)

// Opt configures a Schema.
type Opt func(*options)

type options struct {
	validate *validator.Validate
}

// WithValidator supplies a validator with custom rules registered. New
// modifies v: its tag name function is replaced so issue paths use json
// names, which also affects any other caller sharing v.
func WithValidator(v *validator.Validate) Opt {
	return func(o *options) {
		o.validate = v
	}
}

// New builds a schema for the struct type T.
func New[T any](opts ...Opt) (*Schema[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, typ)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.validate == nil {
		o.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	o.validate.RegisterTagNameFunc(fieldName)

	return &Schema[T]{typ: typ, validate: o.validate}, nil
}

// MustNew is New that panics, for package-level schema variables.
func MustNew[T any](opts ...Opt) *Schema[T] {
	s, err := New[T](opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Root returns the node describing T.
func (s *Schema[T]) Root() schema.Node {
	return typeNode{t: s.typ}
}

// Parse fills defaults, decodes data into T and runs validation rules.
// On failure it returns the zero T, never a partly decoded value.
func (s *Schema[T]) Parse(data map[string]any) (T, error) {
	var zero, out T

	withDefaults, err := applyDefaults(data, s.typ, 0)
	if err != nil {
		return zero, &schema.ValidationError{Issues: []schema.Issue{{Message: err.Error()}}}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			rejectFractionHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return zero, fmt.Errorf("structschema: building decoder: %w", err)
	}
	if err := dec.Decode(withDefaults); err != nil {
		return zero, &schema.ValidationError{Issues: decodeIssues(err)}
	}

	if err := s.validate.Struct(out); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return zero, fmt.Errorf("structschema: validating: %w", err)
		}
		issues := make([]schema.Issue, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			issues = append(issues, schema.Issue{
				Path:    namespacePath(fe.Namespace()),
				Message: describe(fe),
			})
		}
		return zero, &schema.ValidationError{Issues: issues}
	}

	return out, nil
}

// rejectFractionHookFunc stops weak decoding from truncating 80.9 to 80.
func rejectFractionHookFunc() mapstructure.DecodeHookFuncKind {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float32 && from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		default:
			return data, nil
		}
		f := reflect.ValueOf(data).Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%v is not an integer", data)
		}
		return data, nil
	}
}

// typeNode describes a Go type.
type typeNode struct {
	t reflect.Type
}

func (n typeNode) Kind() schema.Kind {
	t := n.t
	if t.Kind() == reflect.Pointer {
		return schema.KindWrapper
	}
	if t == durationType || reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return schema.KindScalar
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map:
		return schema.KindObject
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return schema.KindScalar
		}
		return schema.KindArray
	default:
		return schema.KindScalar
	}
}

func (n typeNode) Keys() ([]string, error) {
	if n.Kind() != schema.KindObject {
		return nil, schema.ErrNotObject
	}
	if n.t.Kind() == reflect.Map {
		return nil, errDynamicKeys
	}
	fields := structFields(n.t)
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.name)
	}
	return keys, nil
}

func (n typeNode) Field(key string) (schema.Node, bool) {
	if n.Kind() != schema.KindObject || n.t.Kind() != reflect.Struct {
		return nil, false
	}
	for _, f := range structFields(n.t) {
		if f.name != key {
			continue
		}
		if f.hasDefault {
			return defaultNode{t: f.typ}, true
		}
		return typeNode{t: f.typ}, true
	}
	return nil, false
}

func (n typeNode) Inner() (schema.Node, bool) {
	if n.t.Kind() != reflect.Pointer {
		return nil, false
	}
	return typeNode{t: n.t.Elem()}, true
}

// defaultNode is a field with a `default` tag: a wrapper around its type.
type defaultNode struct {
	t reflect.Type
}

func (defaultNode) Kind() schema.Kind { return schema.KindWrapper }

func (defaultNode) Keys() ([]string, error) { return nil, schema.ErrNotObject }

func (defaultNode) Field(string) (schema.Node, bool) { return nil, false }

func (n defaultNode) Inner() (schema.Node, bool) { return typeNode{t: n.t}, true }

type field struct {
	name       string
	typ        reflect.Type
	def        string
	hasDefault bool
}

// structFields lists the decodable fields of t in declaration order.
// Untagged embedded structs are flattened into their parent.
func structFields(t reflect.Type) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}
		if sf.Anonymous && name == "" {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				out = append(out, structFields(et)...)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		def, hasDefault := sf.Tag.Lookup("default")
		out = append(out, field{name: name, typ: sf.Type, def: def, hasDefault: hasDefault})
	}
	return out
}

// applyDefaults returns a copy of data with `default` tag values filled in
// for missing keys, recursing into nested objects.
func applyDefaults(data map[string]any, t reflect.Type, depth int) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	if depth >= schema.MaxDepth {
		return out, nil
	}

	for _, f := range structFields(t) {
		v, ok := out[f.name]
		if !ok && f.hasDefault {
			dv, err := defaultValue(f)
			if err != nil {
				return nil, err
			}
			out[f.name] = dv
			v, ok = dv, true
		}

		ft := f.typ
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Struct || (typeNode{t: ft}).Kind() != schema.KindObject {
			continue
		}

		// Value struct fields always exist once decoded, so their own
		// defaults apply even when the key is absent.
		if !ok {
			if f.typ.Kind() == reflect.Pointer {
				continue
			}
			v = map[string]any{}
		}
		nested, isMap := v.(map[string]any)
		if !isMap {
			continue
		}
		filled, err := applyDefaults(nested, ft, depth+1)
		if err != nil {
			return nil, err
		}
		if !ok && len(filled) == 0 {
			continue
		}
		out[f.name] = filled
	}
	return out, nil
}

// defaultValue turns a `default` tag into a decodable value. Composite
// fields take JSON; everything else stays a string for weak decoding.
func defaultValue(f field) (any, error) {
	ft := f.typ
	for ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	trimmed := strings.TrimSpace(f.def)
	composite := ft.Kind() == reflect.Struct || ft.Kind() == reflect.Map ||
		ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array
	if composite && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
			return nil, fmt.Errorf("invalid default for %q: %w", f.name, err)
		}
		return v, nil
	}
	return f.def, nil
}

func fieldName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return sf.Name
	}
	return name
}

// namespacePath drops the root type name from a validator namespace.
func namespacePath(ns string) []string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return splitPath(ns)
	}
	return splitPath(rest)
}

// splitPath turns "arr[0].id" into [arr 0 id].
func splitPath(p string) []string {
	p = strings.NewReplacer("[", ".", "]", "").Replace(p)
	var out []string
	for _, part := range strings.Split(p, ".") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch {
	case fe.Tag() == "required":
		return "is required"
	case fe.Param() != "":
		return fmt.Sprintf("must satisfy %s=%s, got %v", fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("must satisfy %s, got %v", fe.Tag(), fe.Value())
	}
}

// decodeIssues reports one issue per failing field. Decode errors arrive
// joined, possibly nested, and each leaf names its field in quotes.
func decodeIssues(err error) []schema.Issue {
	var issues []schema.Issue
	for _, leaf := range leafErrors(err, 0) {
		issues = append(issues, decodeIssue(leaf.Error()))
	}
	return issues
}

func leafErrors(err error, depth int) []error {
	if depth >= schema.MaxDepth {
		return []error{err}
	}
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		var out []error
		for _, inner := range e.Unwrap() {
			out = append(out, leafErrors(inner, depth+1)...)
		}
		return out
	case interface{ Unwrap() error }:
		var joined interface{ Unwrap() []error }
		if inner := e.Unwrap(); errors.As(inner, &joined) {
			return leafErrors(inner, depth+1)
		}
	}
	return []error{err}
}

func decodeIssue(msg string) schema.Issue {
	start := strings.IndexByte(msg, '\'')
	if start < 0 {
		return schema.Issue{Message: msg}
	}
	end := strings.IndexByte(msg[start+1:], '\'')
	if end <= 0 {
		return schema.Issue{Message: msg}
	}
	return schema.Issue{Path: splitPath(msg[start+1 : start+1+end]), Message: msg}
}
