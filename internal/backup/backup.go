// Package backup writes compressed copies of an image before it is
// overwritten and restores them.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/snespatch/internal/errs"
)

// ErrInvalidName is returned by Restore for a file that does not follow the
// backup naming scheme.
var ErrInvalidName = fmt.Errorf("%w: not a backup file name", errs.ErrValidation)

const (
	timestampLayout = "20060102-150405"
	backupMarker    = ".bak"
)

// Manager creates and restores backup files.
type Manager struct {
	logger     *log.Logger
	compressor Compressor
	now        func() time.Time
}

// New creates a backup manager that compresses new backups with c.
func New(logger *log.Logger, c Compressor) *Manager {
	return &Manager{
		logger:     logger,
		compressor: c,
		now:        time.Now,
	}
}

// Name returns the backup file name for an image path at the given time.
func Name(path string, at time.Time, c Compressor) string {
	return path + "." + at.Format(timestampLayout) + backupMarker + c.Extension()
}

// Backup writes a compressed copy of data next to path and returns the name
// of the backup file.
func (m *Manager) Backup(path string, data []byte) (string, error) {
	compressed, err := m.compressor.Compress(data)
	if err != nil {
		return "", fmt.Errorf("compressing backup: %w", err)
	}

	name := Name(path, m.now(), m.compressor)
	if err := os.WriteFile(name, compressed, 0o644); err != nil {
		return "", fmt.Errorf("writing backup file '%s': %w", name, err)
	}

	m.logger.Info("Backup written",
		log.String("file", name),
		log.String("compression", m.compressor.Name()),
		log.Int("size", len(compressed)))
	return name, nil
}

// Read decompresses a backup file and returns the path of the image it was
// taken from along with its content.
func Read(backupPath string) (string, []byte, error) {
	target, c, err := parseName(backupPath)
	if err != nil {
		return "", nil, err
	}

	compressed, err := os.ReadFile(backupPath)
	if err != nil {
		return "", nil, fmt.Errorf("reading backup file '%s': %w", backupPath, err)
	}
	data, err := c.Decompress(compressed)
	if err != nil {
		return "", nil, fmt.Errorf("decompressing backup file '%s': %w", backupPath, err)
	}
	return target, data, nil
}

// Restore overwrites the image a backup file was taken from with the backup
// content and returns the restored path.
func (m *Manager) Restore(backupPath string) (string, error) {
	target, data, err := Read(backupPath)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("writing file '%s': %w", target, err)
	}

	m.logger.Info("Backup restored",
		log.String("backup", backupPath),
		log.String("file", target),
		log.Int("size", len(data)))
	return target, nil
}

// parseName splits a backup file name into the original image path and the
// compressor matching its extension.
func parseName(backupPath string) (string, Compressor, error) {
	dir, file := filepath.Split(backupPath)
	idx := strings.LastIndex(file, backupMarker)
	if idx < 0 {
		return "", nil, fmt.Errorf("%w: '%s'", ErrInvalidName, backupPath)
	}

	c, err := forExtension(file[idx+len(backupMarker):])
	if err != nil {
		return "", nil, errors.Join(fmt.Errorf("%w: '%s'", ErrInvalidName, backupPath), err)
	}

	stamped := file[:idx]
	dot := strings.LastIndexByte(stamped, '.')
	if dot <= 0 {
		return "", nil, fmt.Errorf("%w: '%s'", ErrInvalidName, backupPath)
	}
	if _, err := time.Parse(timestampLayout, stamped[dot+1:]); err != nil {
		return "", nil, fmt.Errorf("%w: '%s': %w", ErrInvalidName, backupPath, err)
	}

	return dir + stamped[:dot], c, nil
}
