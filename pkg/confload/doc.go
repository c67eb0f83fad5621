// Package confload loads application configuration from layered JSON files
// and environment variables, and validates it against a schema.
//
// # Sources
//
// A load merges, in this order:
//   - config files: config/config.json, or config/<env>.config.json with WithEnv
//   - secrets files: secrets/secrets.json, or secrets/<env>.secrets.json
//   - environment overrides, one variable per schema field
//
// Later sources win. Nested objects merge key by key; arrays, null and
// scalars replace whatever an earlier file held. Missing and blank files
// contribute nothing. Paths may also be URLs (s3://, gs://, mem://, ...),
// read through viant/afs.
//
// # Environment overrides
//
// Every field the schema declares, at any depth, can be set from an
// environment variable whose name joins the field path with the delimiter
// (default "___"):
//
//	server.port          -> server___port
//	database.pool.size   -> database___pool___size
//
// Empty values are ignored. Values for object or array fields must be JSON;
// everything else is passed as a string and coerced by the schema.
//
// # Basic Usage
//
//	type Config struct {
//		Name   string `json:"name" validate:"required"`
//		Server struct {
//			Host string `json:"host" default:"localhost"`
//			Port int    `json:"port" default:"8080" validate:"min=1,max=65535"`
//		} `json:"server"`
//	}
//
//	cfg, err := confload.Load(ctx, structschema.MustNew[Config](),
//		confload.WithEnv(os.Getenv("APP_ENV")),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// JSON Schema documents are supported through the jsonschema adapter:
//
//	s, err := jsonschema.New[map[string]any](raw)
//	cfg, err := confload.LoadAsync(ctx, s, confload.WithConfigPathList("base.json, local.json"))
//
// # Sync and async
//
// Load reads files one after another and stops at the first failure.
// LoadAsync reads them concurrently; the result, and the error on failure,
// are the same as Load's. LoadFromEnv skips files and reads overrides only.
//
// # Error Handling
//
// The package defines several error types:
//   - ErrEmptyDelimiter: the delimiter option is empty (returned before any I/O)
//   - *ReadError: a file exists but cannot be read
//   - *ParseError: a file is not valid JSON
//   - *TypeMismatchError: a file holds JSON that is not an object
//   - *EnvParseError: an override for an object or array field is not valid JSON
//   - *schema.ValidationError: the merged result fails the schema
//
// # Safety
//
// The keys __proto__, constructor and prototype are dropped from every
// object loaded from a file. Objects nested inside arrays are kept as loaded.
package confload
