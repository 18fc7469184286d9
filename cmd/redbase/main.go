// Command redbase is a small interactive driver over the engine: a
// readline REPL that parses a structured command vocabulary (not SQL)
// and dispatches straight into internal/sm and internal/ql, the way
// cmd/manual_test/sql's direct-driver main talks straight to an
// executor instead of going over the wire like cmd/client does.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ntmai/redbase/internal/pf"
	"github.com/ntmai/redbase/internal/ql"
	"github.com/ntmai/redbase/internal/record"
	"github.com/ntmai/redbase/internal/sm"
)

// ---- History (own file, same shape as the teacher's client) ----

type History struct {
	path  string
	lines []string
}

func NewHistory(path string) *History {
	return &History{path: path}
}

func (h *History) Load(max int) error {
	if h.path == "" {
		return nil
	}
	f, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		h.lines = append(h.lines, s)
		if max > 0 && len(h.lines) > max {
			h.lines = h.lines[len(h.lines)-max:]
		}
	}
	return sc.Err()
}

func (h *History) Append(stmt string) error {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" || h.path == "" {
		return nil
	}
	stmt = compactOneLine(stmt)
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := fmt.Fprintln(f, stmt); err != nil {
		return err
	}
	h.lines = append(h.lines, stmt)
	return nil
}

func (h *History) Print(last int) {
	if last <= 0 || last > len(h.lines) {
		last = len(h.lines)
	}
	start := len(h.lines) - last
	if start < 0 {
		start = 0
	}
	for i := start; i < len(h.lines); i++ {
		fmt.Printf("%5d  %s\n", i+1, h.lines[i])
	}
}

func compactOneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == ' ' {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// ---- REPL helpers ----

// statementComplete checks for a terminating ';' outside single quotes.
func statementComplete(buf string) bool {
	inQuote := false
	for _, r := range buf {
		if r == '\'' {
			inQuote = !inQuote
			continue
		}
		if r == ';' && !inQuote {
			return true
		}
	}
	return false
}

func isMetaCommand(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, "\\") || line == "quit" || line == "exit"
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".redbase_history"
	}
	return filepath.Join(home, ".redbase_history")
}

// ---- tabular output (Printer + SELECT results) ----

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func printTable(attrs []record.Attr, rows [][]any) {
	cols := make([]string, len(attrs))
	for i, a := range attrs {
		cols[i] = a.Name
	}
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	strRows := make([][]string, len(rows))
	for i, row := range rows {
		strRows[i] = make([]string, len(cols))
		for j := range cols {
			s := fmt.Sprintf("%v", row[j])
			strRows[i][j] = s
			if len(s) > widths[j] {
				widths[j] = len(s)
			}
		}
	}
	printRow := func(values []string) {
		for i := range cols {
			if i > 0 {
				fmt.Print(" | ")
			}
			fmt.Print(padRight(values[i], widths[i]))
		}
		fmt.Println()
	}
	printRow(cols)
	for i := range cols {
		if i > 0 {
			fmt.Print("-+-")
		}
		fmt.Print(strings.Repeat("-", widths[i]))
	}
	fmt.Println()
	for _, row := range strRows {
		printRow(row)
	}
	fmt.Printf("(%d rows)\n", len(rows))
}

// tablePrinter implements sm.Printer, buffering rows for printTable.
type tablePrinter struct {
	attrs []record.Attr
	rows  [][]any
}

func (p *tablePrinter) Header(attrs []record.Attr) { p.attrs = attrs }
func (p *tablePrinter) Row(values []any)           { p.rows = append(p.rows, values) }
func (p *tablePrinter) Footer()                    {}

// ---- command execution ----

func run(m *sm.Manager, stmt Statement) error {
	switch st := stmt.(type) {
	case CreateTableStmt:
		if err := m.CreateTable(st.TableName, st.Attrs); err != nil {
			return err
		}
		fmt.Printf("OK, table %s created\n", st.TableName)
	case DropTableStmt:
		if err := m.DropTable(st.TableName); err != nil {
			return err
		}
		fmt.Printf("OK, table %s dropped\n", st.TableName)
	case CreateIndexStmt:
		if err := m.CreateIndex(st.TableName, st.AttrName); err != nil {
			return err
		}
		fmt.Printf("OK, index on %s.%s created\n", st.TableName, st.AttrName)
	case DropIndexStmt:
		if err := m.DropIndex(st.TableName, st.AttrName); err != nil {
			return err
		}
		fmt.Printf("OK, index on %s.%s dropped\n", st.TableName, st.AttrName)
	case LoadStmt:
		f, err := os.Open(st.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := m.Load(st.TableName, f)
		if err != nil {
			return err
		}
		fmt.Printf("OK (%d rows loaded)\n", n)
	case InsertStmt:
		rid, err := ql.Insert(m, st.TableName, st.Values)
		if err != nil {
			return err
		}
		fmt.Printf("OK (1 row inserted, rid=%v)\n", rid)
	case DeleteStmt:
		n, err := ql.Delete(m, st.TableName, st.Conditions)
		if err != nil {
			return err
		}
		fmt.Printf("OK (%d rows deleted)\n", n)
	case UpdateStmt:
		n, err := ql.Update(m, st.TableName, st.Set, st.Conditions)
		if err != nil {
			return err
		}
		fmt.Printf("OK (%d rows updated)\n", n)
	case SelectStmt:
		return runSelect(m, st)
	case HelpStmt:
		var attrs []record.Attr
		var rows [][]any
		var err error
		if st.TableName == "" {
			attrs, rows, err = m.Help()
		} else {
			attrs, rows, err = m.HelpRelation(st.TableName)
		}
		if err != nil {
			return err
		}
		printTable(attrs, rows)
	case PrintStmt:
		p := &tablePrinter{}
		if err := m.Print(st.TableName, p); err != nil {
			return err
		}
		printTable(p.attrs, p.rows)
	case SetStmt:
		if err := m.Set(st.Name, st.Value); err != nil {
			return err
		}
		fmt.Println("OK")
	case BufferStmt:
		return runBuffer(m, st)
	case QueryPlanStmt:
		m.Session.QueryPlans = st.On
		fmt.Println("OK")
	default:
		return fmt.Errorf("unhandled statement type %T", stmt)
	}
	return nil
}

func runSelect(m *sm.Manager, st SelectStmt) error {
	op, cleanup, err := ql.NewSelect(m, st.TableName, st.Attrs, st.Conditions)
	if err != nil {
		return err
	}
	defer cleanup()

	if m.Session.QueryPlans {
		fmt.Print(op.Print(0))
	}

	if err := op.Open(); err != nil {
		return err
	}
	defer op.Close()

	schema := op.Schema()
	var rows [][]any
	for {
		tup, err := op.Next()
		if err != nil {
			if errors.Is(err, ql.ErrEOF) {
				break
			}
			return err
		}
		vals, err := record.DecodeTuple(schema, tup.Bytes)
		if err != nil {
			return err
		}
		rows = append(rows, vals)
	}
	printTable(schema.Attrs, rows)
	return nil
}

func runBuffer(m *sm.Manager, st BufferStmt) error {
	// internal/pf.Manager.OpenFile gives every FileHandle its own buffer
	// pool, so these commands act only on the pool of this freshly opened
	// relcat handle, not on the pools of other open relations or indexes.
	rel, err := m.OpenRelation(sm.RelcatFile)
	if err != nil {
		return err
	}
	defer rel.Close()
	pool := rel.Pool()

	switch st.Action {
	case "reset":
		if err := pool.Reset(); err != nil {
			return err
		}
		fmt.Println("OK, buffer pool reset")
	case "resize":
		pool.Resize(st.N)
		fmt.Printf("OK, buffer pool resized to %d pages\n", st.N)
	case "print":
		frames := pool.DebugDump()
		fmt.Printf("%-8s %-5s %-6s\n", "page", "pin", "dirty")
		for _, f := range frames {
			fmt.Printf("%-8d %-5d %-6t\n", f.Page, f.Pin, f.Dirty)
		}
		fmt.Printf("(%d frames resident)\n", len(frames))
	}
	return nil
}

func main() {
	var (
		dataDir    = flag.String("data", "./redbase.db", "database directory (created if absent)")
		bufferSize = flag.Int("buffer-pages", 128, "buffer pool size in pages")
		histPath   = flag.String("history", defaultHistoryPath(), "history file path")
		histMax    = flag.Int("history-max", 2000, "max history lines loaded into memory")
		create     = flag.Bool("create", false, "create a new database at -data instead of opening one")
	)
	flag.Parse()

	pfm := pf.NewManager(*bufferSize)
	var m *sm.Manager
	var err error
	if *create {
		m, err = sm.CreateDB(pfm, *dataDir)
	} else {
		m, err = sm.OpenDB(pfm, *dataDir)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "redbase: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = m.Close() }()

	h := NewHistory(*histPath)
	_ = h.Load(*histMax)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "redbase> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	for _, line := range h.lines {
		_ = rl.SaveHistory(line)
	}

	var buf strings.Builder
	fmt.Printf("connected to %s\n", *dataDir)
	fmt.Println("type \\help for help")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt("redbase> ")
				continue
			}
			fmt.Println("^C")
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isMetaCommand(line) {
			switch line {
			case "\\q", "quit", "exit":
				return
			case "\\help":
				fmt.Println(helpText())
			case "\\history":
				h.Print(50)
			default:
				fmt.Printf("unknown command: %s\n", line)
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)

		if !statementComplete(buf.String()) {
			rl.SetPrompt("...> ")
			continue
		}

		text := strings.TrimSpace(buf.String())
		buf.Reset()
		rl.SetPrompt("redbase> ")

		_ = h.Append(text)
		_ = rl.SaveHistory(compactOneLine(text))

		if m.Session.PrintCommands {
			fmt.Println(text)
		}

		stmt, err := Parse(text)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		if err := run(m, stmt); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func helpText() string {
	return `meta commands:
  \q | quit | exit       quit
  \history                print history
  \help                   show help

statements (end with ';'):
  CREATE TABLE rel (attr TYPE, ...)     TYPE is INT, FLOAT, or STRING(n)
  DROP TABLE rel
  CREATE INDEX rel(attr)
  DROP INDEX rel(attr)
  LOAD rel FROM 'path'
  INSERT INTO rel VALUES (v1, v2, ...)
  SELECT attr,... | * FROM rel [WHERE cond [AND cond]*]
  DELETE FROM rel [WHERE cond [AND cond]*]
  UPDATE rel SET attr = value [WHERE cond [AND cond]*]
  HELP [rel]
  PRINT rel
  SET name value
  RESET BUFFER | PRINT BUFFER | RESIZE BUFFER n
  QUERY PLAN ON | OFF`
}
