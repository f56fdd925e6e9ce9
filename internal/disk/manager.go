// Package disk implements byte-level persistence of fixed-size pages to
// a single backing file. It is the lowest layer of the storage engine:
// it knows nothing about frames, pins, or tuples, only page-sized reads
// and writes at page-aligned offsets.
package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tuannm99/pagekit/internal/page"
)

// ErrOutOfBounds is returned by ReadPage when the requested page id is
// at or beyond the current end of the file.
var ErrOutOfBounds = errors.New("disk: read past end of file")

// Manager owns a single database file and serializes all I/O against it
// through one mutex, since the file handle has a single seek cursor and
// concurrent seeks would race.
type Manager struct {
	mu       sync.Mutex
	file     *os.File
	pageSize int64
}

// Open creates the file at path if it does not already exist, then
// opens it for read and write. Returns an error if the file cannot be
// created or opened.
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o664)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	return &Manager{file: f, pageSize: page.Size}, nil
}

// ReadPage seeks to page_id * PageSize and reads exactly PageSize bytes
// into dst. dst must be page.Size bytes long. Fails with ErrOutOfBounds
// if the offset is at or beyond the current file length; the contents
// of dst past the point of failure are left undefined.
func (m *Manager) ReadPage(id page.ID, dst []byte) error {
	if len(dst) != page.Size {
		return fmt.Errorf("disk: dst must be exactly %d bytes, got %d", page.Size, len(dst))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	offset := int64(id) * m.pageSize

	info, err := m.file.Stat()
	if err != nil {
		return fmt.Errorf("disk: stat: %w", err)
	}
	if offset >= info.Size() {
		return ErrOutOfBounds
	}

	if _, err := m.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("disk: seek: %w", err)
	}
	if _, err := io.ReadFull(m.file, dst); err != nil {
		return fmt.Errorf("disk: read page %d: %w", id, err)
	}
	return nil
}

// WritePage seeks to page_id * PageSize, writes PageSize bytes, and
// flushes them to the OS. src must be page.Size bytes long. No fsync is
// issued: durability against process or OS crash is out of scope.
func (m *Manager) WritePage(id page.ID, src []byte) error {
	if len(src) != page.Size {
		return fmt.Errorf("disk: src must be exactly %d bytes, got %d", page.Size, len(src))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	offset := int64(id) * m.pageSize
	if _, err := m.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("disk: seek: %w", err)
	}
	if _, err := m.file.Write(src); err != nil {
		return fmt.Errorf("disk: write page %d: %w", id, err)
	}
	return nil
}

// AllocatePage appends one zero-filled page to the end of the file and
// returns the id it was assigned. Ids are handed out monotonically and
// are never reused by this layer.
func (m *Manager) AllocatePage() (page.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := m.file.Stat()
	if err != nil {
		return page.InvalidID, fmt.Errorf("disk: stat: %w", err)
	}

	size := info.Size()
	nextID := page.ID(size / m.pageSize)

	zero := make([]byte, page.Size)
	if _, err := m.file.WriteAt(zero, size); err != nil {
		return page.InvalidID, fmt.Errorf("disk: allocate page: %w", err)
	}

	return nextID, nil
}

// Shutdown closes the underlying file handle. Safe to call more than
// once.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}
