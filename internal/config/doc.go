// Package config provides the settings of the confload command line tool.
//
// The package uses a Provider interface to abstract configuration loading, with the
// primary implementation combining a YAML file and environment variables.
//
// # Configuration Structure
//
// Configuration is structured as follows:
//
//	schema: schemas/app.json   # JSON Schema used when --schema is omitted
//	env: prod                  # selects prod.config.json / prod.secrets.json
//	dir: /srv/app              # where config/ and secrets/ live
//	delimiter: ___             # joins nested fields into env variable names
//	output: json               # json or yaml
//	debug: false
//	async: false
//
// # Basic Usage
//
// Load settings from ~/.confload/config.yaml and the process environment:
//
//	cfg, err := config.New().Load(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Precedence
//
// Each setting is taken from the first source that sets it:
//   - CONFLOAD_* environment variables (CONFLOAD_SCHEMA, CONFLOAD_OUTPUT, ...)
//   - the settings file
//   - the defaults returned by Default
//
// Layers are combined with mergo, so a false or empty value never overrides
// a lower layer.
//
// # Configuration Validation
//
// The package performs validation of loaded configuration:
//   - Delimiter must not be empty
//   - Output must be json or yaml
//
// # Error Handling
//
// The package defines several error types:
//   - ErrInvalidConfig: Configuration validation failed
//   - ErrNoConfig: Configuration file not found (defaults are used)
package config
