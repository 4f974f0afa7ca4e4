// Package files stores receipt attachments on local disk.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/boddenberg/spendlog/internal/domain"

	"go.uber.org/zap"
)

// Disk is a flat directory of uploaded files.
type Disk struct {
	dir    string
	logger *zap.Logger
}

// NewDisk creates dir if needed and returns a store rooted at it.
func NewDisk(dir string, logger *zap.Logger) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Disk{dir: abs, logger: logger}, nil
}

// Dir returns the absolute root directory.
func (d *Disk) Dir() string { return d.dir }

// resolve maps a bare file name to a path inside the root, refusing
// anything that would escape it.
func (d *Disk) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", &domain.ErrValidation{Field: "filename", Message: "invalid file name"}
	}
	p := filepath.Join(d.dir, name)
	if !strings.HasPrefix(p, d.dir+string(os.PathSeparator)) {
		return "", &domain.ErrValidation{Field: "filename", Message: "invalid file name"}
	}
	return p, nil
}

// Save writes r to name, returning the number of bytes written.
func (d *Disk) Save(ctx context.Context, name string, r io.Reader) (int64, error) {
	p, err := d.resolve(name)
	if err != nil {
		return 0, err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create upload: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(p)
		return 0, fmt.Errorf("write upload: %w", err)
	}
	d.logger.Debug("files: saved", zap.String("name", name), zap.Int64("bytes", n))
	return n, nil
}

// Delete removes name. It reports false when the file did not exist.
func (d *Disk) Delete(ctx context.Context, name string) (bool, error) {
	p, err := d.resolve(name)
	if err != nil {
		return false, err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("delete upload: %w", err)
	}
	d.logger.Debug("files: deleted", zap.String("name", name))
	return true, nil
}
