package secret

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// FileProvider reads a secret from a file, trimming surrounding whitespace.
// The reference is the file path. It suits mounted container secrets.
type FileProvider struct{}

// Name returns "file".
func (FileProvider) Name() string { return "file" }

// Resolve reads the file at ref.
func (FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", errors.Wrap(err, "read secret file")
	}
	return strings.TrimSpace(string(data)), nil
}

// Close is a no-op.
func (FileProvider) Close() error { return nil }

// EnvProvider reads a secret from the process environment.
type EnvProvider struct{}

// Name returns "env".
func (EnvProvider) Name() string { return "env" }

// Resolve returns the environment variable named ref.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", errors.Wrapf(ErrMissingVariable, "%s", ref)
	}
	return v, nil
}

// Close is a no-op.
func (EnvProvider) Close() error { return nil }

var (
	_ Provider = FileProvider{}
	_ Provider = EnvProvider{}
)
