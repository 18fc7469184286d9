package pf

// PageSize is the fixed page size used across every layer built on top of
// PF (RM slotted pages, IX nodes and buckets). It is a compile-time
// constant rather than a per-file setting: RedBase ran every file at one
// page size, and spec.md's Size Budget assumes the same.
const PageSize = 4096

// PageNum identifies a page within a file, in the numbering RM/IX see.
// It never includes PF's own hidden header block.
type PageNum int32

// NoPage is the "null pointer" page number, used for free-list terminators
// and unset parent/sibling links the same way the original used -1.
const NoPage PageNum = -1

// Page is a pinned, in-memory copy of one on-disk page.
type Page struct {
	Num  PageNum
	Data []byte // len == PageSize
}

func newPage(num PageNum) *Page {
	return &Page{Num: num, Data: make([]byte, PageSize)}
}
