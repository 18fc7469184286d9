package pf

import (
	"container/list"
	"log/slog"
	"sync"
)

// frame holds one buffered page and its pin/dirty state, the same shape
// the teacher's bufferpool.Frame used, minus the CLOCK reference bit:
// this pool replaces pages in true LRU order instead of CLOCK/second-
// chance, per spec.md's explicit "LRU-style replacement" requirement.
type frame struct {
	page  *Page
	dirty bool
	pin   int32
	elem  *list.Element // node in the pool's LRU list; nil while pinned
}

// BufferPool is a fixed-size LRU buffer pool bound to a single File.
// Pages with pin count zero live on the LRU list; a page is removed from
// the list the instant it is pinned and is only LRU-eligible again once
// fully unpinned.
type BufferPool struct {
	file     *File
	capacity int

	mu       sync.Mutex
	frames   map[PageNum]*frame
	lru      *list.List // front = most recently unpinned, back = next victim
}

// NewBufferPool creates a pool of the given capacity (page frames) bound
// to file.
func NewBufferPool(file *File, capacity int) *BufferPool {
	if capacity <= 0 {
		capacity = 16
	}
	return &BufferPool{
		file:     file,
		capacity: capacity,
		frames:   make(map[PageNum]*frame, capacity),
		lru:      list.New(),
	}
}

// GetPage pins and returns the page numbered num, loading it from disk
// (evicting an LRU victim if the pool is full) if it is not already
// buffered.
func (p *BufferPool) GetPage(num PageNum) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if f, ok := p.frames[num]; ok {
		if f.elem != nil {
			p.lru.Remove(f.elem)
			f.elem = nil
		}
		f.pin++
		slog.Debug("pf.pool: pin hit", "page", num, "pin", f.pin)
		return f.page, nil
	}

	if len(p.frames) >= p.capacity {
		if err := p.evictOneLocked(); err != nil {
			return nil, err
		}
	}

	page := newPage(num)
	if err := p.file.readPage(num, page.Data); err != nil {
		return nil, err
	}
	p.frames[num] = &frame{page: page, pin: 1}
	slog.Debug("pf.pool: loaded from disk", "page", num)
	return page, nil
}

// AllocatePage grows the backing file and returns a freshly pinned, zeroed
// page for the new page number.
func (p *BufferPool) AllocatePage() (*Page, error) {
	num, err := p.file.AllocatePage()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) >= p.capacity {
		if err := p.evictOneLocked(); err != nil {
			return nil, err
		}
	}
	page := newPage(num)
	p.frames[num] = &frame{page: page, pin: 1, dirty: true}
	return page, nil
}

// evictOneLocked picks the back of the LRU list (least recently used,
// unpinned) and flushes it out of the pool. Caller holds p.mu.
func (p *BufferPool) evictOneLocked() error {
	elem := p.lru.Back()
	if elem == nil {
		return ErrNoFreeFrame
	}
	num := elem.Value.(PageNum)
	f := p.frames[num]
	p.lru.Remove(elem)
	delete(p.frames, num)

	if f.dirty {
		if err := p.file.writePage(num, f.page.Data); err != nil {
			return err
		}
	}
	slog.Debug("pf.pool: evicted", "page", num, "dirty", f.dirty)
	return nil
}

// UnpinPage decreases a page's pin count, marking it dirty if requested.
// Once the pin count reaches zero the page becomes LRU-eligible.
func (p *BufferPool) UnpinPage(num PageNum, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.frames[num]
	if !ok {
		return ErrPageNotFound
	}
	if f.pin <= 0 {
		return ErrPageNotPinned
	}
	if dirty {
		f.dirty = true
	}
	f.pin--
	if f.pin == 0 {
		f.elem = p.lru.PushFront(num)
	}
	return nil
}

// MarkDirty flags a currently-pinned page as dirty without changing its
// pin count.
func (p *BufferPool) MarkDirty(num PageNum) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.frames[num]
	if !ok {
		return ErrPageNotFound
	}
	f.dirty = true
	return nil
}

// ForceAll flushes every dirty buffered page to disk.
func (p *BufferPool) ForceAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for num, f := range p.frames {
		if f.dirty {
			if err := p.file.writePage(num, f.page.Data); err != nil {
				return err
			}
			f.dirty = false
		}
	}
	return nil
}

// AnyPinned reports whether any buffered frame still has a nonzero pin
// count, the check Close needs before it may proceed (spec.md sections
// 4.1 and 4.6: closing a file with a pinned page is an error, not a
// forced unpin).
func (p *BufferPool) AnyPinned() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, f := range p.frames {
		if f.pin != 0 {
			return true
		}
	}
	return false
}

// DisposePage evicts a page from the pool (it must be unpinned) and
// returns it to the file's free list.
func (p *BufferPool) DisposePage(num PageNum) error {
	p.mu.Lock()
	if f, ok := p.frames[num]; ok {
		if f.pin != 0 {
			p.mu.Unlock()
			return ErrPagePinned
		}
		if f.elem != nil {
			p.lru.Remove(f.elem)
		}
		delete(p.frames, num)
	}
	p.mu.Unlock()
	return p.file.DisposePage(num)
}

// Reset writes every dirty frame back to disk (ForceAll) and then drops
// every buffered frame, pinned ones included, for the PF-level "RESET
// BUFFER" utility command (SPEC_FULL.md section 4).
func (p *BufferPool) Reset() error {
	if err := p.ForceAll(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = make(map[PageNum]*frame, p.capacity)
	p.lru = list.New()
	return nil
}

// Resize changes the pool's frame capacity for the "RESIZE BUFFER n"
// utility command; n <= 0 is ignored. Shrinking evicts nothing: a full
// pool evicts one frame for each page it brings in, so the number of
// resident frames stays above n until pages are disposed or the pool is
// Reset.
func (p *BufferPool) Resize(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > 0 {
		p.capacity = n
	}
}

// DebugDump returns a snapshot of buffered page numbers and their pin/
// dirty state, for the "PRINT BUFFER" utility command.
type FrameInfo struct {
	Page  PageNum
	Pin   int32
	Dirty bool
}

func (p *BufferPool) DebugDump() []FrameInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]FrameInfo, 0, len(p.frames))
	for num, f := range p.frames {
		out = append(out, FrameInfo{Page: num, Pin: f.pin, Dirty: f.dirty})
	}
	return out
}
