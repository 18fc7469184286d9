package sm

import (
	"errors"
	"log/slog"

	"github.com/ntmai/redbase/internal/astshim"
	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/rm"
)

func isCatalogName(relName string) bool {
	return relName == RelcatFile || relName == AttrcatFile
}

// CreateTable validates attribute count and name uniqueness, computes
// per-attribute offsets with no alignment beyond each declared length,
// creates the relation's RM file, and appends its rows to relcat/attrcat,
// per spec.md section 4.4.
func (m *Manager) CreateTable(relName string, attrs []astshim.AttrInfo) error {
	if isCatalogName(relName) {
		return ErrSystemCatalog
	}
	if len(attrs) < 1 || len(attrs) > record.MaxAttrs {
		return ErrIncorrectAttrCount
	}
	if _, _, ok, err := m.findRelcat(relName); err != nil {
		return err
	} else if ok {
		return ErrTableAlreadyExists
	}

	recAttrs := make([]record.Attr, len(attrs))
	for i, a := range attrs {
		length := a.Length
		if a.Type != record.AttrString {
			length = a.Type.FixedLength()
		}
		recAttrs[i] = record.Attr{Name: a.AttrName, Type: a.Type, Length: length}
	}
	schema, err := record.NewSchema(recAttrs)
	if err != nil {
		return ErrInvalidName
	}

	if err := m.rmm.CreateFile(m.RelationPath(relName), schema.TupleLength()); err != nil {
		return err
	}
	if err := m.appendCatalogRows(relName, schema); err != nil {
		return err
	}
	slog.Debug("sm: created table", "relation", relName, "attrCount", len(attrs))
	return nil
}

// DropTable rejects the two catalog names, destroys every index on
// relName, then removes its attrcat/relcat rows and RM file.
func (m *Manager) DropTable(relName string) error {
	if isCatalogName(relName) {
		return ErrSystemCatalog
	}
	relRID, _, ok, err := m.findRelcat(relName)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTableDoesNotExist
	}

	attrRIDs, rows, err := m.attrcatRows(relName)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if row.indexNo != noIndex {
			if err := m.ixm.DestroyFile(m.IndexPath(relName, int(row.indexNo))); err != nil {
				return err
			}
		}
		if err := m.attrcat.DeleteRecord(attrRIDs[i]); err != nil {
			return err
		}
	}
	if err := m.relcat.DeleteRecord(relRID); err != nil {
		return err
	}
	if err := m.rmm.DestroyFile(m.RelationPath(relName)); err != nil {
		return err
	}
	slog.Debug("sm: dropped table", "relation", relName)
	return nil
}

// CreateIndex rejects a second index on the same attribute, assigns the
// index number as the attribute's position within attrcat, creates the
// index file, increments relcat.indexCount, and back-fills it by scanning
// every live record of relName into the new index.
func (m *Manager) CreateIndex(relName, attrName string) error {
	relRID, rel, ok, err := m.findRelcat(relName)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTableDoesNotExist
	}
	attrRIDs, rows, err := m.attrcatRows(relName)
	if err != nil {
		return err
	}

	indexNo := -1
	var target attrcatRow
	for i, r := range rows {
		if r.attrName == attrName {
			indexNo = i
			target = r
			if r.indexNo != noIndex {
				return ErrIndexExists
			}
			break
		}
	}
	if indexNo < 0 {
		return ErrAttributeNotFound
	}

	attr := target.attr()
	if err := m.ixm.CreateFile(m.IndexPath(relName, indexNo), attr); err != nil {
		return err
	}
	tree, err := m.ixm.OpenFile(m.IndexPath(relName, indexNo))
	if err != nil {
		return err
	}
	defer tree.Close()

	rf, err := m.OpenRelation(relName)
	if err != nil {
		return err
	}
	defer rf.Close()

	scan := rf.OpenScan(record.Attr{}, record.NoOp, nil)
	defer scan.Close()
	for {
		rid, buf, err := scan.Next()
		if err != nil {
			if errors.Is(err, rm.ErrEOF) {
				break
			}
			return err
		}
		key := buf[attr.Offset : attr.Offset+attr.Length]
		if err := tree.Insert(key, rid); err != nil {
			return err
		}
	}

	target.indexNo = int32(indexNo)
	buf, err := target.encode()
	if err != nil {
		return err
	}
	if err := m.attrcat.UpdateRecord(attrRIDs[indexNo], buf); err != nil {
		return err
	}

	rel.indexCount++
	relBuf, err := rel.encode()
	if err != nil {
		return err
	}
	if err := m.relcat.UpdateRecord(relRID, relBuf); err != nil {
		return err
	}
	slog.Debug("sm: created index", "relation", relName, "attribute", attrName, "indexNo", indexNo)
	return nil
}

// DropIndex reverses CreateIndex: marks indexNo = -1, decrements
// relcat.indexCount, destroys the index file.
func (m *Manager) DropIndex(relName, attrName string) error {
	relRID, rel, ok, err := m.findRelcat(relName)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTableDoesNotExist
	}
	attrRIDs, rows, err := m.attrcatRows(relName)
	if err != nil {
		return err
	}

	indexNo := -1
	for i, r := range rows {
		if r.attrName == attrName {
			if r.indexNo == noIndex {
				return ErrIndexDoesNotExist
			}
			indexNo = int(r.indexNo)
			rows[i].indexNo = noIndex
			buf, err := rows[i].encode()
			if err != nil {
				return err
			}
			if err := m.attrcat.UpdateRecord(attrRIDs[i], buf); err != nil {
				return err
			}
			break
		}
	}
	if indexNo < 0 {
		return ErrAttributeNotFound
	}

	if err := m.ixm.DestroyFile(m.IndexPath(relName, indexNo)); err != nil {
		return err
	}
	rel.indexCount--
	buf, err := rel.encode()
	if err != nil {
		return err
	}
	if err := m.relcat.UpdateRecord(relRID, buf); err != nil {
		return err
	}
	slog.Debug("sm: dropped index", "relation", relName, "attribute", attrName)
	return nil
}
