package sm

import (
	"github.com/ntmai/redbase/internal/record"
)

// RelcatFile and AttrcatFile are the deterministic names of the two
// self-describing catalog RM files, per spec.md section 6. DbinfoFile is
// the distributed-mode bootstrap record's file, per SPEC_FULL.md section 4.
const (
	RelcatFile = "relcat"
	AttrcatFile = "attrcat"
	DbinfoFile  = "dbinfo"
)

// relcatSchema mirrors SM_RelcatRecord{relName, tupleLength, attrCount,
// indexCount} — SM_RELCAT_ATTR_COUNT (4) attributes, per sm.h.
var relcatSchema = mustSchema([]record.Attr{
	{Name: "relName", Type: record.AttrString, Length: record.MaxName},
	{Name: "tupleLength", Type: record.AttrInt},
	{Name: "attrCount", Type: record.AttrInt},
	{Name: "indexCount", Type: record.AttrInt},
})

// attrcatSchema mirrors SM_AttrcatRecord{relName, attrName, offset,
// attrType, attrLength, indexNo} — SM_ATTRCAT_ATTR_COUNT (6), per sm.h.
var attrcatSchema = mustSchema([]record.Attr{
	{Name: "relName", Type: record.AttrString, Length: record.MaxName},
	{Name: "attrName", Type: record.AttrString, Length: record.MaxName},
	{Name: "offset", Type: record.AttrInt},
	{Name: "attrType", Type: record.AttrInt},
	{Name: "attrLength", Type: record.AttrInt},
	{Name: "indexNo", Type: record.AttrInt},
})

// dbinfoSchema mirrors the bootstrap {distributed, numberNodes} record
// dbcreate.cc writes; the local core only ever sees distributed == 0.
var dbinfoSchema = mustSchema([]record.Attr{
	{Name: "distributed", Type: record.AttrInt},
	{Name: "numberNodes", Type: record.AttrInt},
})

func mustSchema(attrs []record.Attr) record.Schema {
	s, err := record.NewSchema(attrs)
	if err != nil {
		panic(err)
	}
	return s
}

// relcatRow is one decoded relcat tuple.
type relcatRow struct {
	relName     string
	tupleLength int32
	attrCount   int32
	indexCount  int32
}

func (r relcatRow) encode() ([]byte, error) {
	return record.EncodeTuple(relcatSchema, []any{r.relName, r.tupleLength, r.attrCount, r.indexCount})
}

func decodeRelcatRow(buf []byte) (relcatRow, error) {
	vals, err := record.DecodeTuple(relcatSchema, buf)
	if err != nil {
		return relcatRow{}, err
	}
	return relcatRow{
		relName:     vals[0].(string),
		tupleLength: vals[1].(int32),
		attrCount:   vals[2].(int32),
		indexCount:  vals[3].(int32),
	}, nil
}

// attrcatRow is one decoded attrcat tuple.
type attrcatRow struct {
	relName    string
	attrName   string
	offset     int32
	attrType   int32
	attrLength int32
	indexNo    int32 // -1 means "not indexed"
}

const noIndex int32 = -1

func (a attrcatRow) encode() ([]byte, error) {
	return record.EncodeTuple(attrcatSchema, []any{a.relName, a.attrName, a.offset, a.attrType, a.attrLength, a.indexNo})
}

func decodeAttrcatRow(buf []byte) (attrcatRow, error) {
	vals, err := record.DecodeTuple(attrcatSchema, buf)
	if err != nil {
		return attrcatRow{}, err
	}
	return attrcatRow{
		relName:    vals[0].(string),
		attrName:   vals[1].(string),
		offset:     vals[2].(int32),
		attrType:   vals[3].(int32),
		attrLength: vals[4].(int32),
		indexNo:    vals[5].(int32),
	}, nil
}

func (a attrcatRow) attr() record.Attr {
	return record.Attr{Name: a.attrName, Type: record.AttrType(a.attrType), Length: int(a.attrLength), Offset: int(a.offset)}
}

type dbinfoRow struct {
	distributed int32
	numberNodes int32
}

func (d dbinfoRow) encode() ([]byte, error) {
	return record.EncodeTuple(dbinfoSchema, []any{d.distributed, d.numberNodes})
}

func decodeDbinfoRow(buf []byte) (dbinfoRow, error) {
	vals, err := record.DecodeTuple(dbinfoSchema, buf)
	if err != nil {
		return dbinfoRow{}, err
	}
	return dbinfoRow{distributed: vals[0].(int32), numberNodes: vals[1].(int32)}, nil
}
