package recordings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/alfredjeanlab/somno/internal/model"
)

// DirSource serves recordings from a local directory. Only files directly in
// the directory are considered.
type DirSource struct {
	root    string
	pattern string
}

// NewDirSource creates a source for root. An empty pattern means
// DefaultPattern. A missing root lists as empty.
func NewDirSource(root, pattern string) (*DirSource, error) {
	p, err := patternOrDefault(pattern)
	if err != nil {
		return nil, err
	}
	return &DirSource{root: root, pattern: p}, nil
}

func (s *DirSource) Name() string { return "dir" }

// Root returns the directory the source serves.
func (s *DirSource) Root() string { return s.root }

// Pattern returns the file name pattern.
func (s *DirSource) Pattern() string { return s.pattern }

// List returns the matching files sorted by name.
func (s *DirSource) List(ctx context.Context) ([]model.Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := doublestar.Glob(os.DirFS(s.root), s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", s.root, err)
	}

	recs := make([]model.Recording, 0, len(matches))
	for _, m := range matches {
		if strings.Contains(m, "/") {
			continue
		}
		info, err := os.Stat(filepath.Join(s.root, m))
		if err != nil {
			// Removed between glob and stat.
			continue
		}
		recs = append(recs, model.Recording{
			Name:    m,
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
			Source:  s.Name(),
		})
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
	return recs, nil
}

// Path returns the on-disk path of a recording. Names outside the source's
// pattern are not found, as in List.
func (s *DirSource) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if !matchPattern(s.pattern, name) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p := filepath.Join(s.root, name)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", err
	}
	return p, nil
}

// Open opens a recording for reading.
func (s *DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}
