package confload

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lc/confload/internal/metrics"
	"github.com/lc/confload/pkg/schema"
)

// Load reads the config files, then the secrets files, one after another,
// merges them in that order, applies env overrides and parses the result
// with s. The first failure aborts the load.
func Load[T any](ctx context.Context, s schema.Schema[T], opts ...Opt) (T, error) {
	return run(ctx, s, metrics.ModeSync, opts)
}

// LoadAsync is Load with every file read concurrently. Results are merged
// in the same order as Load, and a failure surfaces the same error Load
// would have returned.
func LoadAsync[T any](ctx context.Context, s schema.Schema[T], opts ...Opt) (T, error) {
	return run(ctx, s, metrics.ModeAsync, opts)
}

// LoadFromEnv skips files entirely: only env overrides feed the schema.
func LoadFromEnv[T any](ctx context.Context, s schema.Schema[T], opts ...Opt) (T, error) {
	return run(ctx, s, metrics.ModeEnv, opts)
}

type loader struct {
	opts    *options
	log     *zap.SugaredLogger
	metrics *metrics.Collector
}

func run[T any](ctx context.Context, s schema.Schema[T], mode string, opts []Opt) (T, error) {
	var zero T

	o := newOptions(opts)
	if o.delimiter == "" {
		return zero, ErrEmptyDelimiter
	}
	if s == nil {
		return zero, ErrNilSchema
	}

	var m *metrics.Collector
	if o.registerer != nil {
		var err error
		if m, err = metrics.New(o.registerer); err != nil {
			return zero, err
		}
	}

	l := &loader{
		opts:    o,
		log:     o.log.With("load_id", uuid.NewString(), "mode", mode),
		metrics: m,
	}

	start := time.Now()
	out, err := load(ctx, l, s, mode)
	l.metrics.ObserveLoad(mode, err, time.Since(start))
	return out, err
}

func load[T any](ctx context.Context, l *loader, s schema.Schema[T], mode string) (T, error) {
	var zero T

	acc := map[string]any{}
	if mode != metrics.ModeEnv {
		paths := l.paths()
		var (
			docs []map[string]any
			err  error
		)
		if mode == metrics.ModeAsync {
			docs, err = l.readAll(ctx, paths)
		} else {
			docs, err = l.readEach(ctx, paths)
		}
		if err != nil {
			return zero, err
		}
		for _, doc := range docs {
			Merge(acc, doc)
		}
	}

	n, err := ApplyOverrides(acc, s.Root(), l.opts.delimiter, l.opts.lookup, l.log)
	l.metrics.OverridesApplied(n)
	if err != nil {
		return zero, err
	}

	return validate(l, s, acc)
}

// paths lists config files then secrets files, in merge order.
func (l *loader) paths() []string {
	o := l.opts
	config := ResolvePaths(PathRequest{
		Category: CategoryConfig,
		Paths:    o.configPaths,
		List:     o.configList,
		Env:      o.env,
		Dir:      o.dir,
	})
	secrets := ResolvePaths(PathRequest{
		Category: CategorySecrets,
		Paths:    o.secretsPaths,
		List:     o.secretsList,
		Env:      o.env,
		Dir:      o.dir,
	})
	return append(config, secrets...)
}

func (l *loader) read(ctx context.Context, path string) (map[string]any, bool, error) {
	l.log.Debugw("loading config from", "path", path)
	doc, found, err := readContent(ctx, l.opts.reader, path)
	if err == nil {
		l.metrics.FileRead(found)
	}
	return doc, found, err
}

func (l *loader) readEach(ctx context.Context, paths []string) ([]map[string]any, error) {
	docs := make([]map[string]any, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, _, err := l.read(ctx, p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// readAll reads every path concurrently. A failing read does not cancel its
// siblings; every failure is collected and the one belonging to the
// earliest path is returned.
func (l *loader) readAll(ctx context.Context, paths []string) ([]map[string]any, error) {
	var (
		grp   errgroup.Group
		found = atomic.NewInt64(0)
		docs  = make([]map[string]any, len(paths))
		errs  = make([]error, len(paths))
	)

	for i, p := range paths {
		i, p := i, p
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			doc, ok, err := l.read(ctx, p)
			if err != nil {
				errs[i] = err
				return nil
			}
			if ok {
				found.Inc()
			}
			docs[i] = doc
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	var combined error
	for _, err := range errs {
		combined = multierr.Append(combined, err)
	}
	if combined != nil {
		all := multierr.Errors(combined)
		if len(all) > 1 {
			l.log.Debugw("config files failed to load", "failures", len(all), "error", combined)
		}
		return nil, all[0]
	}

	l.log.Debugw("read config files", "found", found.Load(), "total", len(paths))
	return docs, nil
}

// validate parses acc with s. Issues are logged one by one in debug mode and
// the adapter's error is returned unchanged, with the zero T.
func validate[T any](l *loader, s schema.Schema[T], acc map[string]any) (T, error) {
	out, err := s.Parse(acc)
	if err == nil {
		return out, nil
	}

	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		l.metrics.ValidationFailed()
		if l.opts.debug {
			for _, issue := range verr.Issues {
				l.log.Debugw("validation issue", "path", strings.Join(issue.Path, "."), "message", issue.Message)
			}
		}
	}
	var zero T
	return zero, err
}
