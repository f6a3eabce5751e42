// Package recordings lists and opens the PSG recordings a user can pick
// from, whether they live in a local data directory or an S3 bucket.
package recordings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/alfredjeanlab/somno/internal/model"
)

// DefaultPattern matches the PSG files of the sleep-telemetry data set.
const DefaultPattern = "*-PSG.edf"

var (
	ErrNotFound    = errors.New("recording not found")
	ErrInvalidName = errors.New("invalid recording name")
)

// Source is a place recordings can be listed and read from.
type Source interface {
	Name() string
	List(ctx context.Context) ([]model.Recording, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Locator is implemented by sources that keep recordings on local disk.
type Locator interface {
	Path(name string) (string, error)
}

// ValidateName rejects names that could escape the source root.
func ValidateName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func matchPattern(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

func patternOrDefault(pattern string) (string, error) {
	if pattern == "" {
		return DefaultPattern, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return "", fmt.Errorf("invalid recording pattern %q", pattern)
	}
	return pattern, nil
}
