package contextstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/promptrelay/internal/atomicfile"
)

// Persister saves fact values so they survive a restart.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Load wraps fs.ErrNotExist when nothing has been saved.
type Persister interface {
	Save(ctx context.Context, name, value string) error
	Load(ctx context.Context, name string) (string, error)
}

// FilePersister stores each fact as one text file. Relative names resolve
// against Root.
type FilePersister struct {
	Root string
}

// NewFilePersister creates a persister rooted at dir.
func NewFilePersister(dir string) *FilePersister {
	return &FilePersister{Root: dir}
}

// Path returns the file that backs name.
func (p *FilePersister) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.Root, name)
}

// Save replaces the file for name atomically.
func (p *FilePersister) Save(_ context.Context, name, value string) error {
	return atomicfile.WriteFile(p.Path(name), []byte(value), 0o644)
}

// Load reads the file for name.
func (p *FilePersister) Load(_ context.Context, name string) (string, error) {
	data, err := os.ReadFile(p.Path(name))
	if err != nil {
		return "", errors.Wrapf(err, "load %s", name)
	}
	return string(data), nil
}

var _ Persister = (*FilePersister)(nil)
