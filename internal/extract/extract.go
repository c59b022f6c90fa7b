// Package extract writes the files of an archive to a filesystem.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/ossyrian/ba2extract/internal/ba2"
	"github.com/ossyrian/ba2extract/internal/dds"
	"github.com/ossyrian/ba2extract/internal/parser"
)

// ErrUnsafePath means a record name would be written outside the output directory.
var ErrUnsafePath = errors.New("unsafe output path")

// Options controls an extraction run.
type Options struct {
	// OutputDir is the absolute directory files are written under.
	OutputDir string
	// PreviewDir receives PNG previews of textures when non-empty. Must be absolute.
	PreviewDir string
	// Workers bounds the number of records extracted at once; 0 means GOMAXPROCS.
	Workers int
	// DryRun extracts and verifies every record without writing anything.
	DryRun bool
	Logger *slog.Logger
}

// Summary counts what an extraction run did.
type Summary struct {
	Written  int
	Skipped  int
	Previews int
	Bytes    int64
	// Shadowed counts records not extracted because a later record has the same path.
	Shadowed int
}

// Run extracts every record of a into fsys.
//
// Names are resolved up front in record order, since the name table can only be
// walked sequentially; the records themselves are then extracted in parallel.
// The first failing record cancels the rest.
func Run(ctx context.Context, a *parser.Archive, fsys afero.Fs, opts Options) (Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	names, err := a.Names()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to resolve names: %w", err)
	}
	for i, name := range names {
		if err := CheckPath(name); err != nil {
			return Summary{}, &ba2.RecordError{Index: i, Err: err}
		}
	}

	// the last record for a path wins; earlier ones are never scheduled so two
	// workers cannot write the same file
	keys := lo.Map(names, func(name string, _ int) string { return path.Clean(name) })
	last := make(map[string]int, len(keys))
	for i, key := range keys {
		last[key] = i
	}
	shadowed := len(keys) - len(last)
	if shadowed > 0 {
		logger.Warn("archive contains duplicate paths, only the last record for each is extracted",
			"shadowed", shadowed,
			"first", lo.FindDuplicates(keys)[0],
		)
	}

	out := fsys
	if opts.OutputDir != "" {
		out = afero.NewBasePathFs(fsys, opts.OutputDir)
	}
	var previews afero.Fs
	if opts.PreviewDir != "" && a.Kind() == ba2.KindTexture {
		previews = afero.NewBasePathFs(fsys, opts.PreviewDir)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var written, skipped, previewed atomic.Int64
	var total atomic.Int64

	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(workers).
		WithCancelOnError().
		WithFirstError()

	for i, name := range names {
		if last[keys[i]] != i {
			logger.Debug("skipping shadowed record", "index", i, "path", name, "winner", last[keys[i]])
			continue
		}
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := a.Extract(i)
			if errors.Is(err, dds.ErrUnsupportedFormat) && !a.StrictFormats() {
				logger.Warn("skipping texture with unsupported pixel format",
					"index", i,
					"path", name,
					"error", err,
				)
				skipped.Add(1)
				return nil
			}
			if err != nil {
				return err
			}

			total.Add(int64(len(data)))
			if opts.DryRun {
				logger.Debug("verified file", "index", i, "path", name, "size", len(data))
				return nil
			}

			if err := writeFile(out, name, data); err != nil {
				return &ba2.RecordError{Index: i, Err: err}
			}
			written.Add(1)
			logger.Debug("wrote file", "index", i, "path", name, "size", len(data))

			if previews != nil && writePreview(previews, a, i, name, data, logger) {
				previewed.Add(1)
			}
			return nil
		})
	}

	err = p.Wait()

	summary := Summary{
		Written:  int(written.Load()),
		Skipped:  int(skipped.Load()),
		Previews: int(previewed.Load()),
		Bytes:    total.Load(),
		Shadowed: shadowed,
	}
	return summary, err
}

// CheckPath rejects names that are empty, absolute, or climb out of the
// output directory.
func CheckPath(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnsafePath)
	}
	if path.IsAbs(name) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return fmt.Errorf("%w: %q is absolute", ErrUnsafePath, name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %q leaves the output directory", ErrUnsafePath, name)
	}
	return nil
}

func writeFile(fsys afero.Fs, name string, data []byte) error {
	p := filepath.FromSlash(path.Clean(name))
	if err := fsys.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := afero.WriteFile(fsys, p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// writePreview renders the largest mip of texture i as PNG. Failures are
// logged and do not stop the extraction.
func writePreview(fsys afero.Fs, a *parser.Archive, i int, name string, data []byte, logger *slog.Logger) bool {
	rec, ok := a.TextureRecord(i)
	if !ok {
		return false
	}
	t := parser.TextureInfo(rec.Header)
	if dds.TopMipSize(t) == 0 {
		return false
	}

	img, err := dds.DecodeTopMip(t, data[dds.DataOffset(t):])
	if err != nil {
		logger.Warn("failed to decode preview", "index", i, "path", name, "error", err)
		return false
	}

	p := filepath.FromSlash(path.Clean(name)) + ".png"
	if err := fsys.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		logger.Warn("failed to create preview directory", "path", p, "error", err)
		return false
	}
	f, err := fsys.Create(p)
	if err != nil {
		logger.Warn("failed to create preview", "path", p, "error", err)
		return false
	}
	defer f.Close()

	if err := dds.WritePNG(f, img); err != nil {
		logger.Warn("failed to write preview", "path", p, "error", err)
		return false
	}
	return true
}
