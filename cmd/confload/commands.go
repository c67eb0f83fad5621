package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/lc/confload/internal/buildinfo"
	"github.com/lc/confload/internal/config"
	"github.com/lc/confload/internal/filesys"
	"github.com/lc/confload/internal/log"
	"github.com/lc/confload/pkg/confload"
	"github.com/lc/confload/pkg/schema"
	"github.com/lc/confload/pkg/schema/jsonschema"
)

// loadFlags are shared by load and check.
type loadFlags struct {
	schema    string
	config    []string
	secrets   []string
	env       string
	dir       string
	delimiter string
	debug     bool
	async     bool
}

func (f *loadFlags) register(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVar(&f.schema, "schema", cfg.Schema, "JSON Schema document (path or URL)")
	cmd.Flags().StringSliceVar(&f.config, "config", nil, "config files, merged in order (default config/[env.]config.json)")
	cmd.Flags().StringSliceVar(&f.secrets, "secrets", nil, "secrets files, merged after config (default secrets/[env.]secrets.json)")
	cmd.Flags().StringVar(&f.dir, "dir", cfg.Dir, "directory holding config/ and secrets/")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", cfg.Delimiter, "separator joining nested fields in env variable names")
	cmd.Flags().BoolVar(&f.debug, "debug", cfg.Debug, "log loaded files, applied overrides and validation issues")
	cmd.Flags().BoolVar(&f.async, "async", cfg.Async, "read files concurrently")
}

func (f *loadFlags) options(env string) []confload.Opt {
	return []confload.Opt{
		confload.WithConfigPaths(f.config...),
		confload.WithSecretsPaths(f.secrets...),
		confload.WithEnv(env),
		confload.WithDir(f.dir),
		confload.WithDelimiter(f.delimiter),
		confload.WithDebug(f.debug),
	}
}

func (f *loadFlags) load(ctx context.Context, s schema.Schema[map[string]any], env string) (map[string]any, error) {
	if f.async {
		return confload.LoadAsync(ctx, s, f.options(env)...)
	}
	return confload.Load(ctx, s, f.options(env)...)
}

func newRootCmd(cfg *config.Config, stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "confload",
		Short: "Load and validate layered JSON configuration",
		Long: `confload merges JSON config files, JSON secrets files and environment
variable overrides, then validates the result against a JSON Schema.`,
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.AddCommand(
		newLoadCmd(cfg, stdout),
		newPathsCmd(cfg, stdout),
		newCheckCmd(cfg, stdout),
		newVersionCmd(stdout),
	)
	return root
}

// ---- version command ----
func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "version: %s\n", buildinfo.Version)
			fmt.Fprintf(stdout, "commit: %s\n", buildinfo.Commit)
		},
	}
}

// ---- load command ----
func newLoadCmd(cfg *config.Config, stdout io.Writer) *cobra.Command {
	var (
		flags  loadFlags
		output string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Print the validated configuration",
		Long: `Load config files, then secrets files, apply environment overrides and
validate the result. Each schema field can be overridden by a variable named
after its path: server.port is read from server___port.`,
		Example: "confload load --schema app.schema.json --env prod --output yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := readSchema(ctx, flags.schema)
			if err != nil {
				return err
			}
			result, err := flags.load(ctx, s, flags.env)
			if err != nil {
				return err
			}
			data, err := render(result, output)
			if err != nil {
				return err
			}
			if out != "" {
				if err := filesys.AtomicWrite(filesys.OS(), out, data, 0o600); err != nil {
					return err
				}
				log.Debugf("wrote %d bytes to %s", len(data), out)
				return nil
			}
			_, err = stdout.Write(data)
			return err
		},
	}
	flags.register(cmd, cfg)
	cmd.Flags().StringVar(&flags.env, "env", cfg.Env, "environment name selecting <env>.config.json and <env>.secrets.json")
	cmd.Flags().StringVarP(&output, "output", "o", cfg.Output, "output format: json or yaml")
	cmd.Flags().StringVar(&out, "out", "", "write the result to this file instead of stdout")
	return cmd
}

// ---- paths command ----
func newPathsCmd(cfg *config.Config, stdout io.Writer) *cobra.Command {
	var (
		schemaPath string
		delimiter  string
	)
	cmd := &cobra.Command{
		Use:     "paths",
		Short:   "List schema fields and the env variables overriding them",
		Example: "confload paths --schema app.schema.json",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if delimiter == "" {
				return confload.ErrEmptyDelimiter
			}
			s, err := readSchema(cmd.Context(), schemaPath)
			if err != nil {
				return err
			}
			root := s.Root()
			paths := schema.FieldPaths(root)
			if len(paths) == 0 {
				color.New(color.FgYellow).Fprintln(stdout, "Schema declares no fields.")
				return nil
			}

			table := tablewriter.NewWriter(stdout)
			table.SetHeader([]string{"Path", "Env Variable", "Kind"})
			table.SetHeaderColor(
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
			)
			table.SetBorder(false)
			table.SetAutoFormatHeaders(false)
			table.SetColumnColor(
				tablewriter.Colors{tablewriter.FgHiWhiteColor},
				tablewriter.Colors{tablewriter.FgGreenColor},
				tablewriter.Colors{tablewriter.FgYellowColor},
			)

			for _, p := range paths {
				kind := "unknown"
				if n, ok := schema.Lookup(root, p); ok {
					kind = n.Kind().String()
				}
				table.Append([]string{strings.Join(p, "."), confload.EnvName(p, delimiter), kind})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", cfg.Schema, "JSON Schema document (path or URL)")
	cmd.Flags().StringVar(&delimiter, "delimiter", cfg.Delimiter, "separator joining nested fields in env variable names")
	return cmd
}

// ---- check command ----
func newCheckCmd(cfg *config.Config, stdout io.Writer) *cobra.Command {
	var (
		flags loadFlags
		envs  []string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration of one or more environments",
		Long: `Load and validate each environment in turn. Every environment is checked
even when an earlier one fails; all failures are reported together.`,
		Example: "confload check --schema app.schema.json --env dev,staging,prod",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := readSchema(ctx, flags.schema)
			if err != nil {
				return err
			}
			if len(envs) == 0 {
				envs = []string{cfg.Env}
			}

			var errs error
			for _, env := range envs {
				name := env
				if name == "" {
					name = "(default)"
				}
				if _, err := flags.load(ctx, s, env); err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
					color.New(color.FgRed, color.Bold).Fprintf(stdout, "✗ %s\n", name)
					color.New(color.FgRed).Fprintf(stdout, "  %v\n", err)
					continue
				}
				color.New(color.FgGreen, color.Bold).Fprintf(stdout, "✓ %s\n", name)
			}
			return errs
		},
	}
	flags.register(cmd, cfg)
	cmd.Flags().StringSliceVar(&envs, "env", nil, "environments to check (default: the configured env)")
	return cmd
}

func readSchema(ctx context.Context, path string) (*jsonschema.Schema[map[string]any], error) {
	if path == "" {
		return nil, fmt.Errorf("no schema given: pass --schema or set %sSCHEMA", config.EnvPrefix)
	}
	raw, err := filesys.Default().ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	s, err := jsonschema.New[map[string]any](raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func render(v map[string]any, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml":
		return yaml.Marshal(v)
	case "json", "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}
