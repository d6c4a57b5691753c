//go:build linux || darwin

package buffer

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// MmapDiskManager stores pages in a memory-mapped file. Reads are a copy
// out of the mapping; writes copy into the mapping and msync the page
// range, so WritePage is durable before returning like the file backend.
type MmapDiskManager struct {
	file     *os.File
	mmapData []byte
	fileSize int64
	maxPage  int64 // one past the highest page ever written
	mutex    sync.RWMutex
}

const (
	// Initial mapping: 64MB (sparse file, 16K pages)
	mmapInitialSize = 64 * 1024 * 1024
	// Grow by 64MB when a write lands beyond the mapping
	mmapGrowSize = 64 * 1024 * 1024
)

// NewMmapDiskManager creates a memory-mapped disk manager backed by fileName
func NewMmapDiskManager(fileName string) (*MmapDiskManager, error) {
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open/create file %s: %w", fileName, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fileSize := info.Size()
	maxPage := fileSize / PageSize
	if fileSize < mmapInitialSize {
		if err := file.Truncate(mmapInitialSize); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to grow file: %w", err)
		}
		fileSize = mmapInitialSize
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(fileSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}

	return &MmapDiskManager{
		file:     file,
		mmapData: data,
		fileSize: fileSize,
		maxPage:  maxPage,
	}, nil
}

// ReadPage copies a page out of the mapped region into buf
func (dm *MmapDiskManager) ReadPage(pageID PageID, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("page buffer must be exactly %d bytes, got %d", PageSize, len(buf))
	}

	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	if dm.mmapData == nil {
		return fmt.Errorf("disk manager closed")
	}
	if int64(pageID) >= dm.maxPage {
		return fmt.Errorf("page %d was never written", pageID)
	}

	offset := int64(pageID) * PageSize
	copy(buf, dm.mmapData[offset:offset+PageSize])
	return nil
}

// WritePage copies a page into the mapped region and msyncs it
func (dm *MmapDiskManager) WritePage(pageID PageID, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(data))
	}

	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if dm.mmapData == nil {
		return fmt.Errorf("disk manager closed")
	}

	offset := int64(pageID) * PageSize
	if offset+PageSize > dm.fileSize {
		if err := dm.grow(offset + PageSize); err != nil {
			return err
		}
	}

	copy(dm.mmapData[offset:], data)
	if int64(pageID)+1 > dm.maxPage {
		dm.maxPage = int64(pageID) + 1
	}

	// Sync just the written page range for durability
	return unix.Msync(dm.mmapData[offset:offset+PageSize], unix.MS_SYNC)
}

// grow expands the file and recreates the mapping. Called with the write
// lock held.
func (dm *MmapDiskManager) grow(minSize int64) error {
	newSize := dm.fileSize
	for newSize < minSize {
		newSize += mmapGrowSize
	}

	if err := unix.Munmap(dm.mmapData); err != nil {
		return fmt.Errorf("failed to unmap: %w", err)
	}
	dm.mmapData = nil

	if err := dm.file.Truncate(newSize); err != nil {
		return fmt.Errorf("failed to grow file: %w", err)
	}

	data, err := unix.Mmap(int(dm.file.Fd()), 0, int(newSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to remap file: %w", err)
	}

	dm.mmapData = data
	dm.fileSize = newSize
	return nil
}

// Sync flushes the whole mapped region to disk
func (dm *MmapDiskManager) Sync() error {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	if dm.mmapData == nil {
		return fmt.Errorf("disk manager closed")
	}
	if err := unix.Msync(dm.mmapData, unix.MS_SYNC); err != nil {
		return err
	}
	return dm.file.Sync()
}

// Close unmaps the region and closes the file
func (dm *MmapDiskManager) Close() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if dm.mmapData != nil {
		if err := unix.Munmap(dm.mmapData); err != nil {
			return err
		}
		dm.mmapData = nil
	}
	return dm.file.Close()
}
