package rm

import "github.com/ntmai/redbase/internal/pf"

// RID is a stable (page, slot) address for a record, per spec.md section 3.
// Slot is 1-based within a page, matching "slot in [1, N]".
type RID struct {
	Page pf.PageNum
	Slot uint16
}

// NilRID is the "not-viable" default-constructed RID, distinguished from
// any real RID by its page number.
var NilRID = RID{Page: pf.NoPage}

func (r RID) Valid() bool { return r.Page != pf.NoPage }
