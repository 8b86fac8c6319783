// Package xbase3 provides a Go interface to a dBASE III+-compatible
// command and expression language running over the engine package's
// DBF/XDX file formats.
//
// Basic usage:
//
//	db := xbase3.New(".")
//	if err := db.Run("USE people"); err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	for !db.EOF() {
//		fmt.Println(db.Field("NAME"))
//		db.MustSkip(1)
//	}
package xbase3

import (
	"github.com/mkfoss/xbase3/pkg/engine"
	"github.com/mkfoss/xbase3/pkg/lang"
	"github.com/mkfoss/xbase3/pkg/session"
)

// DB is a connection to a dBASE III+-compatible working set: one
// current DBF cursor, its open XDX indexes, and a memory-variable
// table, all driven by one command stream at a time.
//
// The zero value is not usable; create one with New.
type DB struct {
	sess *session.Session
}

// New returns a DB rooted at dir (the process's current directory when
// dir is empty). Output from ?/??/LIST/DISPLAY is discarded unless a
// sink is attached with SetOutput.
func New(dir string) *DB {
	return &DB{sess: session.New(dir)}
}

// SetOutput attaches the callback that receives every line this DB
// writes in response to ?, ??, LIST, DISPLAY and @ SAY: the driver
// chooses whether to echo output to a TTY, a file, or a network buffer
// by supplying a write-line callback.
func (db *DB) SetOutput(fn func(line string)) {
	if fn == nil {
		fn = func(string) {}
	}
	db.sess.Out = fn
}

// SetInput attaches the callback that answers WAIT/ACCEPT/INPUT and
// @ GET prompts; it receives the prompt text and returns the line the
// user typed.
func (db *DB) SetInput(fn func(prompt string) string) {
	db.sess.In = fn
}

// SetFunctions attaches the external function catalogue the expression
// evaluator calls out to; without one, every function call in an
// expression resolves as undefined.
func (db *DB) SetFunctions(cat lang.FuncCatalogue) {
	db.sess.Functions = cat
}

// Run parses and executes one line of input as a single command. A
// syntax error or a runtime failure is returned, but the DB remains
// usable for the next call: errors are caught at command granularity.
func (db *DB) Run(line string) error {
	p := lang.NewParser(line)
	cmd, serr := p.ParseCommand()
	if serr != nil {
		return serr
	}
	if err := db.sess.Execute(cmd); err != nil {
		return err
	}
	return nil
}

// RunScript executes a sequence of lines in order, stopping early if
// QUIT/CANCEL was requested or a command fails.
func (db *DB) RunScript(lines []string) error {
	for _, line := range lines {
		if err := db.Run(line); err != nil {
			return err
		}
		if db.sess.Quit || db.sess.Cancel {
			return nil
		}
	}
	return nil
}

// Quit reports whether the command stream has requested termination
// (QUIT was executed).
func (db *DB) Quit() bool { return db.sess.Quit }

// Cancel reports whether CANCEL was executed.
func (db *DB) Cancel() bool { return db.sess.Cancel }

// Close releases the current database and every open index.
func (db *DB) Close() error {
	if err := db.sess.Execute(&lang.Command{Kind: lang.CmdClose, CloseWhat: lang.CloseAll}); err != nil {
		return err
	}
	return nil
}

// Active reports whether a database is currently open.
func (db *DB) Active() bool {
	return db.sess.Current != nil
}

// RecNo returns the current record number (0 at BOF).
func (db *DB) RecNo() uint32 {
	if db.sess.Current == nil {
		return 0
	}
	return db.sess.Current.RecNo()
}

// EOF / BOF report the cursor's boundary state.
func (db *DB) EOF() bool {
	return db.sess.Current == nil || db.sess.Current.Eof()
}

func (db *DB) BOF() bool {
	return db.sess.Current == nil || db.sess.Current.Bof()
}

// Deleted reports whether the current record carries the soft-delete
// marker.
func (db *DB) Deleted() bool {
	return db.sess.Current != nil && db.sess.Current.Deleted()
}

// Found reports whether the last SEEK/FIND against the controlling
// index matched exactly.
func (db *DB) Found() bool {
	return db.sess.Found()
}

// IndexCount reports how many XDX indexes are currently open.
func (db *DB) IndexCount() int {
	return db.sess.IndexCount()
}

// Order returns the controlling index's 1-based position, or 0 under
// natural order.
func (db *DB) Order() int {
	return db.sess.Order
}

// Field returns the named field's value from the current record as
// text, or "" if no field by that name exists or no database is open.
func (db *DB) Field(name string) string {
	v, ok := db.sess.FieldValue(name)
	if !ok {
		return ""
	}
	return v.ToString()
}

// Var returns a memory variable's current value as text, or "" if it
// is undefined.
func (db *DB) Var(name string) string {
	v, ok := db.sess.GetVar(name)
	if !ok {
		return ""
	}
	return v.ToString()
}

// ==========================================================================
// MUST VARIANTS - Panic instead of returning errors
// ==========================================================================

// MustRun executes line and panics if it fails.
func (db *DB) MustRun(line string) {
	if err := db.Run(line); err != nil {
		panic(err)
	}
}

// MustSkip moves delta records and panics on failure.
func (db *DB) MustSkip(delta int64) {
	if db.sess.Current == nil {
		panic(engine.NewError(engine.KindNoDatabase, "no database in use"))
	}
	if err := db.sess.Current.Skip(delta); err != nil {
		panic(err)
	}
}

// MustGoto repositions the cursor to record n and panics on failure.
func (db *DB) MustGoto(n uint32) {
	if db.sess.Current == nil {
		panic(engine.NewError(engine.KindNoDatabase, "no database in use"))
	}
	if err := db.sess.Current.Goto(n); err != nil {
		panic(err)
	}
}
