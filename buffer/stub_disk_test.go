package buffer

import (
	"fmt"
	"sync"
)

// memDiskManager is an in-memory DiskManager for tests. Reading a page
// that was never written is an error, matching the backend contract.
type memDiskManager struct {
	mu    sync.Mutex
	pages map[PageID][]byte
}

func newMemDiskManager() *memDiskManager {
	return &memDiskManager{pages: make(map[PageID][]byte)}
}

func (m *memDiskManager) ReadPage(pageID PageID, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("page buffer must be exactly %d bytes, got %d", PageSize, len(buf))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.pages[pageID]
	if !ok {
		return fmt.Errorf("page %d was never written", pageID)
	}
	copy(buf, data)
	return nil
}

func (m *memDiskManager) WritePage(pageID PageID, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("page data must be exactly %d bytes, got %d", PageSize, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, PageSize)
	copy(stored, data)
	m.pages[pageID] = stored
	return nil
}

func (m *memDiskManager) Close() error {
	return nil
}

func (m *memDiskManager) pageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pages)
}

// failingDiskManager wraps memDiskManager with switchable write failures,
// for exercising flush error paths.
type failingDiskManager struct {
	memDiskManager
	mu         sync.Mutex
	failWrites bool
	failReads  bool
}

func newFailingDiskManager() *failingDiskManager {
	return &failingDiskManager{
		memDiskManager: memDiskManager{pages: make(map[PageID][]byte)},
	}
}

func (f *failingDiskManager) setFailWrites(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = fail
}

func (f *failingDiskManager) setFailReads(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads = fail
}

func (f *failingDiskManager) WritePage(pageID PageID, data []byte) error {
	f.mu.Lock()
	fail := f.failWrites
	f.mu.Unlock()

	if fail {
		return fmt.Errorf("injected write failure for page %d", pageID)
	}
	return f.memDiskManager.WritePage(pageID, data)
}

func (f *failingDiskManager) ReadPage(pageID PageID, buf []byte) error {
	f.mu.Lock()
	fail := f.failReads
	f.mu.Unlock()

	if fail {
		return fmt.Errorf("injected read failure for page %d", pageID)
	}
	return f.memDiskManager.ReadPage(pageID, buf)
}
