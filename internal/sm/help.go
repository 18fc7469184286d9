package sm

import (
	"errors"

	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/rm"
)

// Printer is the external collaborator PRINT hands formatted tuples to,
// per spec.md section 4.4 ("emits each tuple via the Printer external
// collaborator") and ql_manager.cc's Printer(attributes, attrCount)/
// PrintHeader/Print/PrintFooter sequence.
type Printer interface {
	Header(attrs []record.Attr)
	Row(values []any)
	Footer()
}

// Help returns every relcat row (HELP with no argument), each exposing
// the 4 columns SM_RELCAT_ATTR_COUNT names.
func (m *Manager) Help() ([]record.Attr, [][]any, error) {
	scan := m.relcat.OpenScan(record.Attr{}, record.NoOp, nil)
	defer scan.Close()
	var out [][]any
	for {
		_, buf, err := scan.Next()
		if err != nil {
			if errors.Is(err, rm.ErrEOF) {
				break
			}
			return nil, nil, err
		}
		vals, err := record.DecodeTuple(relcatSchema, buf)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, vals)
	}
	return relcatSchema.Attrs, out, nil
}

// HelpRelation returns relName's attrcat rows (HELP rel), each exposing
// the 6 columns SM_ATTRCAT_ATTR_COUNT names.
func (m *Manager) HelpRelation(relName string) ([]record.Attr, [][]any, error) {
	if _, _, ok, err := m.findRelcat(relName); err != nil {
		return nil, nil, err
	} else if !ok {
		return nil, nil, ErrTableDoesNotExist
	}
	_, rows, err := m.attrcatRows(relName)
	if err != nil {
		return nil, nil, err
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.relName, r.attrName, r.offset, r.attrType, r.attrLength, r.indexNo}
	}
	return attrcatSchema.Attrs, out, nil
}

// Print scans relName and emits every tuple through p (PRINT rel).
func (m *Manager) Print(relName string, p Printer) error {
	schema, err := m.GetSchema(relName)
	if err != nil {
		return err
	}
	rf, err := m.OpenRelation(relName)
	if err != nil {
		return err
	}
	defer rf.Close()

	p.Header(schema.Attrs)
	scan := rf.OpenScan(record.Attr{}, record.NoOp, nil)
	defer scan.Close()
	for {
		_, buf, err := scan.Next()
		if err != nil {
			if errors.Is(err, rm.ErrEOF) {
				break
			}
			return err
		}
		vals, err := record.DecodeTuple(schema, buf)
		if err != nil {
			return err
		}
		p.Row(vals)
	}
	p.Footer()
	return nil
}
