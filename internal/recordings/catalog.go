package recordings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/somno/internal/edf"
	"github.com/alfredjeanlab/somno/internal/model"
)

// headerReadLimit bounds concurrent header reads in Infos.
const headerReadLimit = 4

// Catalog merges several sources. When two sources hold the same name the
// earlier source wins.
type Catalog struct {
	sources []Source
	logger  *slog.Logger
}

// NewCatalog creates a catalog over the given sources, in priority order.
func NewCatalog(logger *slog.Logger, sources ...Source) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{sources: sources, logger: logger}
}

// List returns every recording sorted by name. A failing source is skipped
// with a warning; the call only fails when every source does.
func (c *Catalog) List(ctx context.Context) ([]model.Recording, error) {
	seen := make(map[string]bool)
	var (
		out     []model.Recording
		lastErr error
		failed  int
	)
	for _, src := range c.sources {
		recs, err := src.List(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("recordings: list failed", "source", src.Name(), "error", err)
			lastErr = err
			failed++
			continue
		}
		for _, r := range recs {
			if seen[r.Name] {
				continue
			}
			seen[r.Name] = true
			out = append(out, r)
		}
	}
	if failed > 0 && failed == len(c.sources) {
		return nil, fmt.Errorf("list recordings: %w", lastErr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Names returns the sorted recording names.
func (c *Catalog) Names(ctx context.Context) ([]string, error) {
	recs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	return names, nil
}

// Open opens name from the first source that has it.
func (c *Catalog) Open(ctx context.Context, name string) (io.ReadCloser, Source, error) {
	if err := ValidateName(name); err != nil {
		return nil, nil, err
	}
	for _, src := range c.sources {
		rc, err := src.Open(ctx, name)
		if err == nil {
			return rc, src, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Path returns a local path for name. Recordings that only exist remotely
// are downloaded into dir first.
func (c *Catalog) Path(ctx context.Context, name, dir string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	for _, src := range c.sources {
		if loc, ok := src.(Locator); ok {
			p, err := loc.Path(name)
			if err == nil {
				return p, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return "", err
			}
			continue
		}
		rc, err := src.Open(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		return download(rc, filepath.Join(dir, name))
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

func download(rc io.ReadCloser, dst string) (string, error) {
	defer rc.Close()
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return "", fmt.Errorf("download %s: %w", filepath.Base(dst), err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return dst, nil
}

// Info reads the EDF header of name and summarizes it.
func (c *Catalog) Info(ctx context.Context, name string) (*model.RecordingInfo, error) {
	rc, _, err := c.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	h, err := edf.ReadHeader(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return InfoFromHeader(name, h)
}

// InfoFromHeader builds the summary of an already parsed header.
func InfoFromHeader(name string, h *edf.Header) (*model.RecordingInfo, error) {
	epochs, err := h.TotalEpochs(edf.DefaultEpochSeconds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	eeg, eog, emg, other := h.Channels()
	info := &model.RecordingInfo{
		Name:            name,
		Format:          "EDF",
		TotalEpochs:     epochs,
		DurationSeconds: h.Duration().Seconds(),
		SampleRate:      h.SampleRate(),
		Channels:        model.Channels{EEG: eeg, EOG: eog, EMG: emg, Other: other},
	}
	if h.IsEDFPlus() {
		info.Format = "EDF+"
	}
	if start, err := h.StartTime(); err == nil {
		info.StartTime = start
	}
	return info, nil
}

// Infos reads the headers of several recordings concurrently. Results are
// returned in the order of names. A recording whose header cannot be read
// is logged and left nil; only cancellation fails the call.
func (c *Catalog) Infos(ctx context.Context, names []string) ([]*model.RecordingInfo, error) {
	out := make([]*model.RecordingInfo, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(headerReadLimit)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := c.Info(ctx, name)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Warn("recordings: read header failed", "name", name, "error", err)
				return nil
			}
			out[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDetailed is List with each recording's header summary attached.
func (c *Catalog) ListDetailed(ctx context.Context) ([]model.Recording, error) {
	recs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	infos, err := c.Infos(ctx, names)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		recs[i].Info = infos[i]
	}
	return recs, nil
}
