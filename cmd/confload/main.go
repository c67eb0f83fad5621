// Command `confload` loads, validates and prints application configuration.
//
// Configuration is merged from JSON config files, then JSON secrets files,
// then environment variables named after schema fields, and finally checked
// against a JSON Schema document.
//
// Usage:
//
//	confload load  --schema app.schema.json [--env prod] [--output yaml]
//	confload paths --schema app.schema.json
//	confload check --schema app.schema.json --env dev,staging,prod
//	confload version
//
// Examples:
//
//	confload load --schema app.schema.json                       - Load config/config.json + secrets/secrets.json
//	confload load --schema s.json --config a.json,b.json         - Merge a.json then b.json
//	confload load --schema s.json --config s3://bucket/app.json  - Read a remote source
//	server___port=9090 confload load --schema s.json             - Override server.port from the environment
//
// Defaults for every flag come from ~/.confload/config.yaml and CONFLOAD_*
// environment variables.
package main

import (
	"context"
	"os"

	"github.com/lc/confload/internal/config"
	"github.com/lc/confload/internal/log"
)

func main() {
	cfg, err := config.New().Load(context.Background())
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := newRootCmd(cfg, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
