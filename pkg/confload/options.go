package confload

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lc/confload/internal/filesys"
	"github.com/lc/confload/internal/log"
)

// Opt configures a single load call.
type Opt func(o *options)

type options struct {
	configPaths  []string
	configList   string
	secretsPaths []string
	secretsList  string
	env          string
	dir          string
	debug        bool
	delimiter    string
	reader       FileReader
	lookup       LookupEnv
	log          *zap.SugaredLogger
	registerer   prometheus.Registerer
}

func newOptions(opts []Opt) *options {
	o := &options{
		delimiter: DefaultDelimiter,
		lookup:    os.LookupEnv,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.reader == nil {
		o.reader = filesys.Default()
	}
	if o.lookup == nil {
		o.lookup = os.LookupEnv
	}
	if o.log == nil {
		o.log = log.Named("confload", o.debug)
	}
	return o
}

// WithConfigPaths reads config from paths, in order, instead of the default
// config/config.json.
func WithConfigPaths(paths ...string) Opt {
	return func(o *options) {
		o.configPaths = paths
	}
}

// WithConfigPathList is WithConfigPaths for a comma or whitespace separated
// list, as usually found in a flag or env variable.
func WithConfigPathList(list string) Opt {
	return func(o *options) {
		o.configList = list
	}
}

// WithSecretsPaths reads secrets from paths, in order, instead of the
// default secrets/secrets.json. Secrets are merged after config.
func WithSecretsPaths(paths ...string) Opt {
	return func(o *options) {
		o.secretsPaths = paths
	}
}

// WithSecretsPathList is WithSecretsPaths for a delimited list.
func WithSecretsPathList(list string) Opt {
	return func(o *options) {
		o.secretsList = list
	}
}

// WithEnv selects <env>.config.json and <env>.secrets.json as the default
// files. It has no effect on explicitly given paths.
func WithEnv(env string) Opt {
	return func(o *options) {
		o.env = env
	}
}

// WithDir anchors the default files somewhere other than the working
// directory.
func WithDir(dir string) Opt {
	return func(o *options) {
		o.dir = dir
	}
}

// WithDebug logs loaded paths, applied overrides and validation issues.
func WithDebug(debug bool) Opt {
	return func(o *options) {
		o.debug = debug
	}
}

// WithDelimiter changes the separator used to build env variable names.
// The empty string is rejected when the load starts.
func WithDelimiter(delimiter string) Opt {
	return func(o *options) {
		o.delimiter = delimiter
	}
}

// WithFileReader replaces the reader used for config files.
func WithFileReader(r FileReader) Opt {
	return func(o *options) {
		o.reader = r
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(lookup LookupEnv) Opt {
	return func(o *options) {
		o.lookup = lookup
	}
}

// WithEnvMap looks overrides up in m instead of the process environment.
func WithEnvMap(m map[string]string) Opt {
	return WithLookupEnv(func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	})
}

// WithLogger replaces the package logger.
func WithLogger(l *zap.SugaredLogger) Opt {
	return func(o *options) {
		o.log = l
	}
}

// WithRegisterer records load metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Opt {
	return func(o *options) {
		o.registerer = reg
	}
}
