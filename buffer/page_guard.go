package buffer

// PageGuard is a scoped lease on a pinned page. It releases the pin
// exactly once no matter how many times Release runs, so deferred cleanup
// on every exit path cannot double-unpin. Dirty marking is folded into the
// release.
type PageGuard struct {
	bpm      *BufferPoolManager
	page     *Page
	dirty    bool
	released bool
}

// FetchPageGuarded fetches a page and wraps it in a guard
func (bpm *BufferPoolManager) FetchPageGuarded(pageID PageID) (*PageGuard, error) {
	page, err := bpm.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	return &PageGuard{bpm: bpm, page: page}, nil
}

// NewPageGuarded allocates a new page and wraps it in a guard
func (bpm *BufferPoolManager) NewPageGuarded() (*PageGuard, error) {
	page, err := bpm.NewPage()
	if err != nil {
		return nil, err
	}
	return &PageGuard{bpm: bpm, page: page}, nil
}

// Page returns the guarded page. Valid until Release.
func (g *PageGuard) Page() *Page {
	return g.page
}

// Data returns the guarded page's buffer. Valid until Release.
func (g *PageGuard) Data() []byte {
	return g.page.Data()
}

// MarkDirty records that the caller modified the page; the unpin on
// Release carries the dirty flag
func (g *PageGuard) MarkDirty() {
	g.dirty = true
}

// Release unpins the page. Safe to call more than once; only the first
// call unpins.
func (g *PageGuard) Release() error {
	if g.released {
		return nil
	}
	g.released = true
	return g.bpm.UnpinPage(g.page.GetPageId(), g.dirty)
}
