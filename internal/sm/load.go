package sm

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ntmai/redbase/internal/ix"
	"github.com/ntmai/redbase/internal/record"
)

type indexedAttr struct {
	attr    record.Attr
	indexNo int32
}

// Load reads r as a CSV-like text file (one tuple per line, comma
// separated, no quoting, no escapes), parsing each field per relName's
// declared attribute type, inserting the tuple into the relation and each
// indexed attribute's value into its index. A field that fails to parse
// rejects the whole line rather than silently coercing it to zero, the
// one place this engine deliberately diverges from the original's
// undocumented coercion behaviour (spec.md section 4.4 open question).
func (m *Manager) Load(relName string, r io.Reader) (inserted int, err error) {
	schema, err := m.GetSchema(relName)
	if err != nil {
		return 0, err
	}
	rf, err := m.OpenRelation(relName)
	if err != nil {
		return 0, err
	}
	defer rf.Close()

	_, rows, err := m.attrcatRows(relName)
	if err != nil {
		return 0, err
	}
	var indexes []indexedAttr
	trees := map[int32]*ix.Tree{}
	for _, row := range rows {
		if row.indexNo == noIndex {
			continue
		}
		tree, err := m.ixm.OpenFile(m.IndexPath(relName, int(row.indexNo)))
		if err != nil {
			return inserted, err
		}
		defer tree.Close()
		trees[row.indexNo] = tree
		indexes = append(indexes, indexedAttr{attr: row.attr(), indexNo: row.indexNo})
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != len(schema.Attrs) {
			return inserted, fmt.Errorf("sm: load %s line %d: %w: got %d fields, want %d", relName, lineNo, ErrLoadParseFailed, len(fields), len(schema.Attrs))
		}
		values := make([]any, len(schema.Attrs))
		for i, a := range schema.Attrs {
			v, err := parseField(a, strings.TrimSpace(fields[i]))
			if err != nil {
				return inserted, fmt.Errorf("sm: load %s line %d attribute %q: %w", relName, lineNo, a.Name, ErrLoadParseFailed)
			}
			values[i] = v
		}
		buf, err := record.EncodeTuple(schema, values)
		if err != nil {
			return inserted, err
		}
		rid, err := rf.InsertRecord(buf)
		if err != nil {
			return inserted, err
		}
		for _, idx := range indexes {
			key := buf[idx.attr.Offset : idx.attr.Offset+idx.attr.Length]
			if err := trees[idx.indexNo].Insert(key, rid); err != nil {
				return inserted, err
			}
		}
		inserted++
	}
	if err := scanner.Err(); err != nil {
		return inserted, err
	}
	slog.Debug("sm: bulk loaded relation", "relation", relName, "rows", inserted)
	return inserted, nil
}

func parseField(a record.Attr, s string) (any, error) {
	switch a.Type {
	case record.AttrInt:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	case record.AttrFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	case record.AttrString:
		if len(s) > a.Length {
			return nil, fmt.Errorf("string %q longer than %d", s, a.Length)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown attribute type")
	}
}
