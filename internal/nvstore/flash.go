package nvstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

const (
	// DefaultFlashSize is the size of the emulated flash region.
	DefaultFlashSize = 4096

	// Erased is the value of a byte that was never written.
	Erased byte = 0xFF
)

// Flash is an offset-addressed region backed by an image file. Writes
// replace the image atomically so a reader never sees a torn region.
// An empty path keeps the region in memory only.
type Flash struct {
	mu     sync.Mutex
	path   string
	region []byte
	logger *zap.Logger
	closed bool
}

// OpenFlash opens or creates the flash image at path. An existing image
// shorter than size is padded with erased bytes; a longer one is
// truncated to size.
func OpenFlash(path string, size int, logger *zap.Logger) (*Flash, error) {
	if size <= 0 {
		size = DefaultFlashSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Flash{
		path:   path,
		region: bytes.Repeat([]byte{Erased}, size),
		logger: logger,
	}
	if path == "" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		copy(f.region, data)
		logger.Debug("loaded flash image", zap.String("path", path), zap.Int("bytes", len(data)))
	case os.IsNotExist(err):
		logger.Debug("flash image absent, starting erased", zap.String("path", path))
	default:
		return nil, &StorageError{Op: "open", Backend: f.Name(), Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	return f, nil
}

// Name implements Store.
func (f *Flash) Name() string { return "flash" }

// Size returns the region size in bytes.
func (f *Flash) Size() int { return len(f.region) }

func (f *Flash) bounds(op string, sel Selector, n int) error {
	if f.closed {
		return &StorageError{Op: op, Backend: f.Name(), Selector: sel, Err: ErrUnavailable}
	}
	if sel.Offset < 0 || n <= 0 || sel.Offset+n > len(f.region) {
		return &StorageError{Op: op, Backend: f.Name(), Selector: sel,
			Err: fmt.Errorf("%d bytes at %d in %d-byte region: %w", n, sel.Offset, len(f.region), ErrOutOfRange)}
	}
	return nil
}

// Load reads exactly sel.Length bytes at sel.Offset.
func (f *Flash) Load(sel Selector) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.bounds("load", sel, sel.Length); err != nil {
		return nil, err
	}
	out := make([]byte, sel.Length)
	copy(out, f.region[sel.Offset:sel.Offset+sel.Length])
	return out, nil
}

// Save writes data at sel.Offset and commits the image.
func (f *Flash) Save(sel Selector, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.bounds("save", sel, len(data)); err != nil {
		return err
	}
	if sel.Length > 0 && len(data) > sel.Length {
		return &StorageError{Op: "save", Backend: f.Name(), Selector: sel,
			Err: fmt.Errorf("%d bytes exceed %d-byte slot: %w", len(data), sel.Length, ErrOutOfRange)}
	}

	prev := make([]byte, len(data))
	copy(prev, f.region[sel.Offset:])
	copy(f.region[sel.Offset:], data)

	if err := f.commit(); err != nil {
		copy(f.region[sel.Offset:], prev)
		return &StorageError{Op: "save", Backend: f.Name(), Selector: sel, Err: err}
	}
	f.logger.Debug("flash write", zap.Int("offset", sel.Offset), zap.Int("bytes", len(data)))
	return nil
}

// Erase resets the whole region to the erased state.
func (f *Flash) Erase() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.region {
		f.region[i] = Erased
	}
	if err := f.commit(); err != nil {
		return &StorageError{Op: "erase", Backend: f.Name(), Err: err}
	}
	return nil
}

// Close implements Store.
func (f *Flash) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// commit writes the region to a temporary file in the image directory,
// fsyncs it and renames it over the image.
func (f *Flash) commit() error {
	if f.path == "" {
		return nil
	}

	tmp := f.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary image: %w", err)
	}
	if _, err := file.Write(f.region); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing temporary image: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing temporary image: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temporary image: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming image into place: %w", err)
	}

	if dir, err := os.Open(filepath.Dir(f.path)); err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}
