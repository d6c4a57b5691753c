package buffer

import (
	"fmt"
	"os"
	"sync"
)

// DiskManager is the block-oriented backend the buffer pool reads and
// writes pages through. WritePage must be durable before returning; the
// pool treats it as synchronous. Page byte layout is opaque to the pool.
type DiskManager interface {
	// ReadPage fills buf (exactly PageSize bytes) with the persisted image
	// of the page. Reading a page that was never written is an error.
	ReadPage(pageID PageID, buf []byte) error

	// WritePage persists data (exactly PageSize bytes) as the page's image
	WritePage(pageID PageID, data []byte) error

	Close() error
}

// PageWrite is a single page write in a batch
type PageWrite struct {
	PageID PageID
	Data   []byte
}

// BatchWriter is an optional DiskManager upgrade for vectored writes.
// FlushAllPages uses it to amortize fsync across many dirty pages.
type BatchWriter interface {
	WritePages(writes []PageWrite) error
}

// FileDiskManager stores pages in a single file at PageSize offsets
type FileDiskManager struct {
	file  *os.File
	mutex sync.Mutex
}

// NewFileDiskManager opens or creates the backing file
func NewFileDiskManager(fileName string) (*FileDiskManager, error) {
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open/create file %s: %w", fileName, err)
	}

	return &FileDiskManager{file: file}, nil
}

// ReadPage reads a page from disk into buf
func (dm *FileDiskManager) ReadPage(pageID PageID, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("page buffer must be exactly %d bytes, got %d", PageSize, len(buf))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(pageID) * PageSize
	if _, err := dm.file.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("failed to read page %d: %w", pageID, err)
	}

	return nil
}

// WritePage writes a page to disk and syncs it
func (dm *FileDiskManager) WritePage(pageID PageID, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(data))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	offset := int64(pageID) * PageSize
	if _, err := dm.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("failed to write page %d: %w", pageID, err)
	}

	return dm.file.Sync()
}

// WritePages writes multiple pages in a single batch operation.
// More efficient than writing pages one-at-a-time: one fsync for all.
func (dm *FileDiskManager) WritePages(writes []PageWrite) error {
	if len(writes) == 0 {
		return nil
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	for _, pw := range writes {
		if len(pw.Data) != PageSize {
			return fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(pw.Data))
		}

		offset := int64(pw.PageID) * PageSize
		if _, err := dm.file.WriteAt(pw.Data, offset); err != nil {
			return fmt.Errorf("failed to write page %d: %w", pw.PageID, err)
		}
	}

	// Single fsync for all pages (amortize cost)
	return dm.file.Sync()
}

// Size returns the backing file size in bytes
func (dm *FileDiskManager) Size() (int64, error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	info, err := dm.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close closes the underlying file
func (dm *FileDiskManager) Close() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if dm.file != nil {
		return dm.file.Close()
	}
	return nil
}
