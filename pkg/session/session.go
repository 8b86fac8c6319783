// Package session wires the engine (DBF/XDX) and lang (expression
// language) packages together: a Session holds the mutable state a
// dBASE command stream runs against — the current DBF cursor, the
// open index set, the variable table, the working directory, and the
// quit/cancel flags — and dispatches parsed commands against that
// state.
package session

import (
	"path/filepath"
	"strings"

	"github.com/mkfoss/xbase3/pkg/engine"
	"github.com/mkfoss/xbase3/pkg/lang"
)

// maxOpenIndexes is the session-wide cap on simultaneously open XDX
// files.
const maxOpenIndexes = 10

// openIndex pairs a live *engine.Index with the key expression AST it
// was built from, so REINDEX can re-evaluate it per row without a
// text round-trip through the parser. For an index opened by SET INDEX
// TO, the AST is parsed from the key text stored in the index header.
type openIndex struct {
	idx     *engine.Index
	keyExpr *lang.Expr
	path    string
}

// Session is the single-threaded actor every command executes
// against. It implements lang.FieldSource and lang.VarSource so the
// evaluator can be driven directly from dispatch.go.
type Session struct {
	Dir string

	Current *engine.Dbf
	indexes []*openIndex
	Order   int // 0 = natural DBF order; else 1-based index into indexes

	Vars *VariableStore

	Quit   bool
	Cancel bool

	// LocateCond is the FOR condition remembered from the most recent
	// LOCATE, re-applied by CONTINUE.
	LocateCond *lang.Expr

	DeletedHidden bool // SET DELETED ON/OFF
	ExactMatch    bool // SET EXACT ON/OFF

	// Functions is the external function-catalogue collaborator; nil
	// means every call is UndefinedFunction.
	Functions lang.FuncCatalogue

	// Out/In are the external output-sink and line-reader collaborators:
	// the driver chooses whether to echo output to a TTY, a file, or a
	// network buffer by supplying a write-line callback.
	Out func(string)
	In  func(prompt string) string
}

// New returns a Session rooted at dir (the process CWD if dir is
// empty), with an empty variable store and no open database.
func New(dir string) *Session {
	if dir == "" {
		dir = "."
	}
	return &Session{
		Dir:  dir,
		Vars: NewVariableStore(),
		Out:  func(string) {},
	}
}

func (s *Session) resolvePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.Dir, name)
}

func (s *Session) write(line string) {
	if s.Out != nil {
		s.Out(line)
	}
}

// controllingIndex returns the index currently steering SEEK/FIND, or
// nil under natural order.
func (s *Session) controllingIndex() *openIndex {
	if s.Order <= 0 || s.Order > len(s.indexes) {
		return nil
	}
	return s.indexes[s.Order-1]
}

// Found reports whether the last SEEK/FIND against the controlling
// index matched exactly. It is false under natural order.
func (s *Session) Found() bool {
	oi := s.controllingIndex()
	if oi == nil {
		return false
	}
	return oi.idx.Found()
}

// IndexCount reports how many indexes are currently open for the
// working set.
func (s *Session) IndexCount() int {
	return len(s.indexes)
}

// closeIndexes closes every open index and clears the set (CLOSE
// INDEXES / CLOSE DATABASES / CLOSE ALL).
func (s *Session) closeIndexes() *engine.Error {
	for _, oi := range s.indexes {
		if err := oi.idx.Close(); err != nil {
			return err
		}
	}
	s.indexes = nil
	s.Order = 0
	return nil
}

// closeDatabase closes the current DBF, if any.
func (s *Session) closeDatabase() *engine.Error {
	if s.Current == nil {
		return nil
	}
	err := s.Current.Close()
	s.Current = nil
	return err
}

// exprContext builds the evaluation context for one expression,
// wiring this session as both the field and variable source.
func (s *Session) exprContext() *lang.Context {
	return &lang.Context{Fields: s, Vars: s, Functions: s.Functions}
}

// FieldValue implements lang.FieldSource against the current DBF.
func (s *Session) FieldValue(name string) (lang.Value, bool) {
	if s.Current == nil {
		return lang.Value{}, false
	}
	idx := s.Current.FieldNumber(name)
	if idx < 0 {
		return lang.Value{}, false
	}
	fd, ferr := s.Current.Field(idx)
	if ferr != nil {
		return lang.Value{}, false
	}
	return s.readField(fd), true
}

// AliasFieldValue implements lang.FieldSource's alias->field form.
// Only a single work area is modeled, so this resolves only when alias
// names the current cursor.
func (s *Session) AliasFieldValue(alias, field string) (lang.Value, bool) {
	if s.Current == nil || !strings.EqualFold(alias, s.Current.Alias()) {
		return lang.Value{}, false
	}
	return s.FieldValue(field)
}

// GetVar implements lang.VarSource by delegating to the variable
// store.
func (s *Session) GetVar(name string) (lang.Value, bool) {
	return s.Vars.GetVar(name)
}

func (s *Session) readField(fd engine.FieldDef) lang.Value {
	rec := s.Current.Record()
	switch fd.Type {
	case engine.Numeric:
		n, _ := engine.GetDouble(rec, fd)
		return lang.NumberVal(n)
	case engine.Date:
		d, _ := engine.GetDate(rec, fd)
		return lang.DateVal(d)
	case engine.Logical:
		b, _ := engine.GetLogical(rec, fd)
		return lang.LogicalVal(b)
	default:
		return lang.StringVal(engine.GetString(rec, fd))
	}
}

// writeField dispatches a REPLACE value into fd's storage via its
// type's codec.
func (s *Session) writeField(fd engine.FieldDef, v lang.Value) *engine.Error {
	rec := s.Current.Record()
	var err *engine.Error
	switch fd.Type {
	case engine.Numeric:
		err = engine.PutDouble(rec, fd, v.ToNumber())
	case engine.Date:
		err = engine.PutDate(rec, fd, v.ToDate())
	case engine.Logical:
		err = engine.PutLogical(rec, fd, v.ToLogical())
	default:
		err = engine.PutString(rec, fd, v.ToString())
	}
	if err == nil {
		s.Current.MarkModified()
	}
	return err
}
