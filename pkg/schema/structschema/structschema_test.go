package structschema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lc/confload/pkg/schema"
)

type nestedConfig struct {
	Foo float64 `json:"foo" validate:"required"`
	Bar string  `json:"bar" validate:"required"`
	Baz []int   `json:"baz"`
}

type item struct {
	ID  int    `json:"id"`
	Val string `json:"val"`
}

type appConfig struct {
	Name      string       `json:"name" validate:"required"`
	BirthYear *int         `json:"birthYear,omitempty"`
	Nested    nestedConfig `json:"nested"`
	Arr       []item       `json:"arr"`
}

type serverConfig struct {
	Host    string        `json:"host" default:"localhost"`
	Port    int           `json:"port" default:"8080" validate:"min=1,max=65535"`
	Timeout time.Duration `json:"timeout" default:"5s"`
	Tags    []string      `json:"tags" default:"[\"a\",\"b\"]"`
}

type defaultsConfig struct {
	Server serverConfig      `json:"server"`
	Proxy  *serverConfig     `json:"proxy"`
	Labels map[string]string `json:"labels"`
	Debug  bool              `json:"debug" default:"false"`
	Secret string            `json:"-"`
}

type Base struct {
	Region string `json:"region"`
}

type embeddedConfig struct {
	Base
	Name string `json:"name"`
}

type StructSchemaTestSuite struct {
	suite.Suite
	app *Schema[appConfig]
}

func (s *StructSchemaTestSuite) SetupTest() {
	s.app = MustNew[appConfig]()
}

func (s *StructSchemaTestSuite) TestNewRejectsNonStruct() {
	_, err := New[int]()
	s.ErrorIs(err, ErrNotStruct)
}

func (s *StructSchemaTestSuite) TestPaths() {
	testCases := []struct {
		name     string
		root     schema.Node
		expected []string
	}{
		{
			name:     "nested and array fields",
			root:     s.app.Root(),
			expected: []string{"name", "birthYear", "nested", "nested.foo", "nested.bar", "nested.baz", "arr"},
		},
		{
			name: "defaults, pointers and maps",
			root: MustNew[defaultsConfig]().Root(),
			expected: []string{
				"server", "server.host", "server.port", "server.timeout", "server.tags",
				"proxy", "proxy.host", "proxy.port", "proxy.timeout", "proxy.tags",
				"labels", "debug",
			},
		},
		{
			name:     "embedded structs are flattened",
			root:     MustNew[embeddedConfig]().Root(),
			expected: []string{"region", "name"},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expected, schema.Paths(tc.root))
		})
	}
}

func (s *StructSchemaTestSuite) TestLookupKinds() {
	root := MustNew[defaultsConfig]().Root()

	testCases := []struct {
		path     []string
		expected schema.Kind
	}{
		{path: []string{"server"}, expected: schema.KindObject},
		{path: []string{"proxy"}, expected: schema.KindObject},
		{path: []string{"server", "port"}, expected: schema.KindScalar},
		{path: []string{"server", "timeout"}, expected: schema.KindScalar},
		{path: []string{"server", "tags"}, expected: schema.KindArray},
		{path: []string{"labels"}, expected: schema.KindObject},
	}

	for _, tc := range testCases {
		n, ok := schema.Lookup(root, tc.path)
		s.Require().True(ok, tc.path)
		s.Equal(tc.expected, n.Kind(), tc.path)
	}
}

func (s *StructSchemaTestSuite) TestParseValid() {
	data := map[string]any{
		"name":   "foo",
		"nested": map[string]any{"foo": 1.0, "bar": "abcd", "baz": []any{1.0, 2.0, 3.0}},
		"arr":    []any{map[string]any{"id": 1.0, "val": "foo"}},
	}

	cfg, err := s.app.Parse(data)

	s.Require().NoError(err)
	s.Equal(appConfig{
		Name:   "foo",
		Nested: nestedConfig{Foo: 1, Bar: "abcd", Baz: []int{1, 2, 3}},
		Arr:    []item{{ID: 1, Val: "foo"}},
	}, cfg)
}

func (s *StructSchemaTestSuite) TestParseCoercesStrings() {
	data := map[string]any{
		"name":      "foo",
		"birthYear": "2000",
		"nested":    map[string]any{"foo": "1.5", "bar": "abcd"},
		"arr":       []any{map[string]any{"id": "1", "val": 123.0}},
	}

	cfg, err := s.app.Parse(data)

	s.Require().NoError(err)
	s.Require().NotNil(cfg.BirthYear)
	s.Equal(2000, *cfg.BirthYear)
	s.Equal(1.5, cfg.Nested.Foo)
	s.Equal([]item{{ID: 1, Val: "123"}}, cfg.Arr)
}

func (s *StructSchemaTestSuite) TestParseReportsEveryIssue() {
	data := map[string]any{
		"nested": map[string]any{"foo": 1.0},
	}

	_, err := s.app.Parse(data)

	var verr *schema.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal([]schema.Issue{
		{Path: []string{"name"}, Message: "is required"},
		{Path: []string{"nested", "bar"}, Message: "is required"},
	}, verr.Issues)
}

func (s *StructSchemaTestSuite) TestParseDecodeFailure() {
	data := map[string]any{
		"name":   map[string]any{"not": "a string"},
		"nested": map[string]any{"foo": 1.0, "bar": "x"},
	}

	cfg, err := s.app.Parse(data)

	var verr *schema.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Require().Len(verr.Issues, 1)
	s.Equal([]string{"name"}, verr.Issues[0].Path)
	s.Zero(cfg)
}

func (s *StructSchemaTestSuite) TestParseDecodeFailurePaths() {
	sch := MustNew[defaultsConfig]()
	testCases := []struct {
		name     string
		data     map[string]any
		expected [][]string
	}{
		{
			name:     "unparsable string",
			data:     map[string]any{"server": map[string]any{"port": "abc"}},
			expected: [][]string{{"server", "port"}},
		},
		{
			name:     "fractional number for an integer",
			data:     map[string]any{"server": map[string]any{"port": 80.9}},
			expected: [][]string{{"server", "port"}},
		},
		{
			name: "one issue per field",
			data: map[string]any{
				"server": map[string]any{"port": "abc", "timeout": "soon"},
				"proxy":  map[string]any{"port": 1.5},
			},
			expected: [][]string{{"server", "port"}, {"server", "timeout"}, {"proxy", "port"}},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			cfg, err := sch.Parse(tc.data)

			var verr *schema.ValidationError
			s.Require().ErrorAs(err, &verr)
			var paths [][]string
			for _, issue := range verr.Issues {
				s.NotContains(issue.Message, "\n")
				paths = append(paths, issue.Path)
			}
			s.ElementsMatch(tc.expected, paths)
			s.Zero(cfg)
		})
	}
}

func (s *StructSchemaTestSuite) TestParseAcceptsWholeFloatsForIntegers() {
	sch := MustNew[defaultsConfig]()

	cfg, err := sch.Parse(map[string]any{"server": map[string]any{"port": 80.0}})

	s.Require().NoError(err)
	s.Equal(80, cfg.Server.Port)
}

func (s *StructSchemaTestSuite) TestParseRuleViolationReturnsZeroValue() {
	sch := MustNew[defaultsConfig]()

	cfg, err := sch.Parse(map[string]any{
		"server": map[string]any{"host": "leaked", "port": 70000.0},
	})

	s.Require().Error(err)
	s.Zero(cfg)
}

func (s *StructSchemaTestSuite) TestIssuePathsSplitIndexes() {
	_, err := s.app.Parse(map[string]any{
		"name":   "x",
		"nested": map[string]any{"foo": 1.0, "bar": "x"},
		"arr":    []any{map[string]any{"id": "one"}},
	})

	var verr *schema.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Require().Len(verr.Issues, 1)
	s.Equal([]string{"arr", "0", "id"}, verr.Issues[0].Path)
}

func (s *StructSchemaTestSuite) TestParseAppliesDefaults() {
	sch := MustNew[defaultsConfig]()

	cfg, err := sch.Parse(map[string]any{
		"server": map[string]any{"port": "9090"},
	})

	s.Require().NoError(err)
	s.Equal("localhost", cfg.Server.Host)
	s.Equal(9090, cfg.Server.Port)
	s.Equal(5*time.Second, cfg.Server.Timeout)
	s.Equal([]string{"a", "b"}, cfg.Server.Tags)
	s.Nil(cfg.Proxy)
	s.False(cfg.Debug)
}

func (s *StructSchemaTestSuite) TestParseDefaultsWithoutParentKey() {
	sch := MustNew[defaultsConfig]()

	cfg, err := sch.Parse(map[string]any{})

	s.Require().NoError(err)
	s.Equal("localhost", cfg.Server.Host)
	s.Equal(8080, cfg.Server.Port)
}

func (s *StructSchemaTestSuite) TestParseDoesNotMutateInput() {
	sch := MustNew[defaultsConfig]()
	server := map[string]any{"port": 1.0}
	data := map[string]any{"server": server}

	_, err := sch.Parse(data)

	s.Require().NoError(err)
	s.Equal(map[string]any{"port": 1.0}, server)
	s.Len(data, 1)
}

func (s *StructSchemaTestSuite) TestParseRuleViolation() {
	sch := MustNew[defaultsConfig]()

	_, err := sch.Parse(map[string]any{
		"server": map[string]any{"port": 70000.0},
	})

	var verr *schema.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Require().Len(verr.Issues, 1)
	s.Equal([]string{"server", "port"}, verr.Issues[0].Path)
	s.Contains(verr.Issues[0].Message, "max=65535")
}

func (s *StructSchemaTestSuite) TestParseEmbedded() {
	sch := MustNew[embeddedConfig]()

	cfg, err := sch.Parse(map[string]any{"region": "eu", "name": "x"})

	s.Require().NoError(err)
	s.Equal("eu", cfg.Region)
	s.Equal("x", cfg.Name)
}

func TestStructSchemaSuite(t *testing.T) {
	suite.Run(t, new(StructSchemaTestSuite))
}
