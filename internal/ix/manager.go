package ix

import (
	"log/slog"

	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/record"
)

const headerPageNum = pf.PageNum(0)

// Manager creates, destroys and opens IX files through a shared PF
// manager, the IX_Manager role of the original.
type Manager struct {
	pfm *pf.Manager
}

func NewManager(pfm *pf.Manager) *Manager {
	return &Manager{pfm: pfm}
}

// CreateFile creates a new, empty index file over attr. The node fan-out is
// fixed at creation time from attr's encoded length.
func (m *Manager) CreateFile(path string, attr record.Attr) error {
	return CreateFile(m.pfm, path, attr)
}

func (m *Manager) DestroyFile(path string) error {
	return DestroyFile(m.pfm, path)
}

func (m *Manager) OpenFile(path string) (*Tree, error) {
	return OpenFile(m.pfm, path)
}

// CreateFile lays out a fresh index file: a header page (PageNum 0) and a
// single empty RootLeaf data page.
func CreateFile(pfm *pf.Manager, path string, attr record.Attr) error {
	keyLen := attr.Length
	if keyLen <= 0 {
		keyLen = attr.Type.FixedLength()
	}
	degree := degreeFor(keyLen)
	if degree < 2 {
		return ErrInconsistentNode
	}

	if err := pfm.CreateFile(path); err != nil {
		return err
	}
	pfh, err := pfm.OpenFile(path)
	if err != nil {
		return err
	}
	defer pfh.Close()

	hdrPage, err := pfh.AllocatePage()
	if err != nil {
		return err
	}
	rootPage, err := pfh.AllocatePage()
	if err != nil {
		return err
	}
	root := newNodeView(rootPage.Data, keyLen, degree)
	root.initEmpty(RootLeaf)
	if err := pfh.UnpinPage(rootPage.Num, true); err != nil {
		return err
	}

	h := header{attrType: attr.Type, keyLen: int32(keyLen), rootPage: rootPage.Num, degree: int32(degree), nodeCount: 1}
	h.encode(hdrPage.Data)
	if err := pfh.UnpinPage(hdrPage.Num, true); err != nil {
		return err
	}
	slog.Debug("ix: created index file", "path", path, "degree", degree, "keyLen", keyLen)
	return nil
}

// DestroyFile removes an index file from disk. It must be closed.
func DestroyFile(pfm *pf.Manager, path string) error {
	return pfm.DestroyFile(path)
}

// OpenFile opens an existing index file.
func OpenFile(pfm *pf.Manager, path string) (*Tree, error) {
	pfh, err := pfm.OpenFile(path)
	if err != nil {
		return nil, err
	}
	hdrPage, err := pfh.GetThisPage(headerPageNum)
	if err != nil {
		_ = pfh.Close()
		return nil, err
	}
	var h header
	h.decode(hdrPage.Data)
	if err := pfh.UnpinPage(headerPageNum, false); err != nil {
		_ = pfh.Close()
		return nil, err
	}
	return &Tree{pfh: pfh, hdr: h}, nil
}

// Close flushes and closes the index file.
func (t *Tree) Close() error {
	return t.pfh.Close()
}

// ForcePages flushes every dirty buffered page, delegating to PF.
func (t *Tree) ForcePages() error {
	return t.pfh.ForcePages()
}
