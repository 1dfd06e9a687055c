package taxonomy

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/domain/fault"
	"faulttriage/internal/errs"
	"faulttriage/internal/ports"
)

// Static always returns the same taxonomy.
type Static struct {
	taxonomy fault.Taxonomy
}

var _ ports.TaxonomyProvider = Static{}

func NewStatic(t fault.Taxonomy) Static {
	return Static{taxonomy: t}
}

func (s Static) Current() fault.Taxonomy {
	return s.taxonomy
}

// FileProvider serves a taxonomy loaded from a YAML or TOML file. Watch keeps
// it in sync with the file; a reload that fails to parse or validate leaves
// the previous taxonomy in place.
type FileProvider struct {
	path    string
	current atomic.Pointer[fault.Taxonomy]
}

var _ ports.TaxonomyProvider = (*FileProvider)(nil)

func NewFileProvider(path string) (*FileProvider, error) {
	p := &FileProvider{path: path}
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	p.current.Store(&t)
	return p, nil
}

func (p *FileProvider) Current() fault.Taxonomy {
	return *p.current.Load()
}

func (p *FileProvider) Path() string {
	return p.path
}

// Reload re-reads the file and swaps it in when valid.
func (p *FileProvider) Reload(ctx context.Context) error {
	t, err := Load(p.path)
	if err != nil {
		logging.Warn(
			ctx,
			"taxonomy reload rejected, keeping previous version",
			slog.String("path", p.path),
			slog.Any("err", errs.Loggable(err)),
		)
		return err
	}
	prev := p.current.Swap(&t)
	logging.Info(
		ctx,
		"taxonomy reloaded",
		slog.String("path", p.path),
		slog.String("previous_version", prev.Version),
		slog.String("version", t.Version),
	)
	return nil
}

// Watch reloads the taxonomy whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file by rename
// are picked up too.
func (p *FileProvider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(err, "create taxonomy watcher")
	}
	defer watcher.Close()

	target, err := filepath.Abs(p.path)
	if err != nil {
		return errs.Wrapf(err, "resolve taxonomy path %q", p.path)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errs.Wrapf(err, "watch taxonomy directory %q", filepath.Dir(target))
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "taxonomy.watch"))
	logging.Info(logCtx, "watching taxonomy file", slog.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			_ = p.Reload(logCtx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn(logCtx, "taxonomy watcher error", slog.Any("err", errs.Loggable(err)))
		}
	}
}

// Load reads and validates a taxonomy file. The format follows the extension:
// .toml is TOML, anything else is YAML. Omitted tables fall back to the
// built-in defaults.
func Load(path string) (fault.Taxonomy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fault.Taxonomy{}, errs.Wrapf(err, "read taxonomy %q", path)
	}
	return Parse(raw, Format(path))
}

func Format(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

func Parse(raw []byte, format string) (fault.Taxonomy, error) {
	t := fault.DefaultTaxonomy()

	switch format {
	case "toml":
		if err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&t); err != nil {
			return fault.Taxonomy{}, fmt.Errorf("%w: %v", fault.ErrInvalidTaxonomy, err)
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&t); err != nil {
			return fault.Taxonomy{}, fmt.Errorf("%w: %v", fault.ErrInvalidTaxonomy, err)
		}
	default:
		return fault.Taxonomy{}, fmt.Errorf("%w: unsupported format %q", fault.ErrInvalidTaxonomy, format)
	}

	if err := t.Validate(); err != nil {
		return fault.Taxonomy{}, err
	}
	return t, nil
}

// Marshal renders t in the given format.
func Marshal(t fault.Taxonomy, format string) ([]byte, error) {
	switch format {
	case "toml":
		return toml.Marshal(t)
	case "yaml":
		return yaml.Marshal(t)
	default:
		return nil, fmt.Errorf("unsupported taxonomy format %q", format)
	}
}
