package rm

import "github.com/ntmai/redbase/internal/pf"

// Manager creates, destroys and opens RM files through a shared PF
// manager, mirroring RM_Manager's role in the original.
type Manager struct {
	pfm *pf.Manager
}

func NewManager(pfm *pf.Manager) *Manager {
	return &Manager{pfm: pfm}
}

func (m *Manager) CreateFile(path string, recordSize int) error {
	return CreateFile(m.pfm, path, recordSize)
}

func (m *Manager) DestroyFile(path string) error {
	return DestroyFile(m.pfm, path)
}

func (m *Manager) OpenFile(path string) (*FileHandle, error) {
	return OpenFile(m.pfm, path)
}
