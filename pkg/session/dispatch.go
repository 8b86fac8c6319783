package session

import (
	"fmt"
	"strings"

	"github.com/mkfoss/xbase3/pkg/engine"
	"github.com/mkfoss/xbase3/pkg/lang"
)

// Execute runs one parsed command against the session. Every command
// is caught at this granularity: a failure here never unwinds past the
// caller, so the session stays usable for the next command.
func (s *Session) Execute(cmd *lang.Command) *engine.Error {
	if cmd == nil {
		return nil
	}
	switch cmd.Kind {
	case lang.CmdPrint:
		return s.doPrint(cmd, true)
	case lang.CmdPrintInline:
		return s.doPrint(cmd, false)
	case lang.CmdUse:
		return s.doUse(cmd)
	case lang.CmdClose:
		return s.doClose(cmd)
	case lang.CmdList, lang.CmdDisplay:
		return s.doListDisplay(cmd)
	case lang.CmdGo:
		return s.doGo(cmd)
	case lang.CmdSkip:
		return s.doSkip(cmd)
	case lang.CmdLocate:
		return s.doLocate(cmd)
	case lang.CmdContinue:
		return s.doContinue()
	case lang.CmdAppendBlank:
		return s.requireOpen(s.Current.AppendBlank)
	case lang.CmdDelete:
		return s.doScopedMutate(cmd, (*engine.Dbf).Delete)
	case lang.CmdRecall:
		return s.doScopedMutate(cmd, (*engine.Dbf).Recall)
	case lang.CmdPack:
		return s.requireOpen(func() *engine.Error { _, err := s.Current.Pack(); return err })
	case lang.CmdZap:
		return s.requireOpen(s.Current.Zap)
	case lang.CmdReplace:
		return s.doReplace(cmd)
	case lang.CmdStore:
		return s.doStore(cmd)
	case lang.CmdCreate:
		return s.doCreate(cmd)
	case lang.CmdIndex:
		return s.doIndex(cmd)
	case lang.CmdReindex:
		return s.doReindex()
	case lang.CmdSeek, lang.CmdFind:
		return s.doSeekFind(cmd)
	case lang.CmdSet:
		return s.doSet(cmd)
	case lang.CmdSelect:
		return nil // single work area modeled; SELECT is accepted and ignored
	case lang.CmdClear:
		return s.doClear(cmd)
	case lang.CmdQuit:
		s.Quit = true
		return nil
	case lang.CmdCancel:
		s.Cancel = true
		return nil
	case lang.CmdReturn:
		return nil
	case lang.CmdPublic:
		s.Vars.DeclarePublic(cmd.Names)
		return nil
	case lang.CmdPrivate:
		s.Vars.DeclarePrivate(cmd.Names)
		return nil
	case lang.CmdLocal:
		s.Vars.DeclareLocal(cmd.Names)
		return nil
	case lang.CmdRelease:
		if cmd.All {
			s.Vars.ReleaseAll()
		} else {
			s.Vars.Release(cmd.Names)
		}
		return nil
	case lang.CmdDeclare:
		s.Vars.Store(cmd.Var, lang.ArrayVal(nil))
		return nil
	case lang.CmdCount:
		return s.doCount(cmd)
	case lang.CmdSum:
		return s.doSumAverage(cmd, false)
	case lang.CmdAverage:
		return s.doSumAverage(cmd, true)
	case lang.CmdCopy:
		return s.doCopy(cmd)
	case lang.CmdWait, lang.CmdAccept, lang.CmdInput:
		return s.doInputLike(cmd)
	case lang.CmdAtSay, lang.CmdAtGet:
		return s.doAt(cmd)
	case lang.CmdRun:
		return nil // shell execution is an external-driver concern
	case lang.CmdIf, lang.CmdDoWhile, lang.CmdDoCase, lang.CmdFor,
		lang.CmdDo, lang.CmdProcedure, lang.CmdFunction, lang.CmdParameters,
		lang.CmdExit, lang.CmdLoop, lang.CmdBrowse, lang.CmdEdit, lang.CmdRead,
		lang.CmdErase, lang.CmdHelp:
		// parsed, never executed (named Non-goal: control-flow/procedure
		// execution, interactive screen surfaces)
		return nil
	default:
		return nil
	}
}

// eval evaluates expr against this session's field/variable/function
// sources and surfaces any set-aside evaluator error as an *engine.Error.
func (s *Session) eval(expr *lang.Expr) (lang.Value, *engine.Error) {
	ctx := s.exprContext()
	v := lang.Eval(ctx, expr)
	if ctx.Err != lang.ErrNone {
		return v, engine.NewError(mapEngineKind(string(ctx.Err)), "%s", ctx.ErrDetail)
	}
	return v, nil
}

func (s *Session) requireOpen(fn func() *engine.Error) *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	return fn()
}

func (s *Session) doPrint(cmd *lang.Command, newline bool) *engine.Error {
	parts := make([]string, len(cmd.PrintExprs))
	for i, e := range cmd.PrintExprs {
		v, err := s.eval(e)
		if err != nil {
			return err
		}
		parts[i] = v.ToString()
	}
	line := strings.Join(parts, " ")
	if newline {
		s.write(line)
	} else {
		s.write(line) // driver owns whether ?? actually suppresses the newline
	}
	return nil
}

func (s *Session) doUse(cmd *lang.Command) *engine.Error {
	if err := s.closeDatabase(); err != nil {
		return err
	}
	path := s.resolvePath(cmd.Filename)
	// EXCLUSIVE/SHARED govern multi-user locking (Non-goal: concurrent
	// access control); both open read-write here.
	d, err := engine.Open(path, false)
	if err != nil {
		return err
	}
	if cmd.Alias != "" {
		d.SetAlias(cmd.Alias)
	}
	s.Current = d
	return nil
}

func (s *Session) doClose(cmd *lang.Command) *engine.Error {
	switch cmd.CloseWhat {
	case lang.CloseIndexes:
		return s.closeIndexes()
	case lang.CloseDatabases:
		return s.closeDatabase()
	default:
		if err := s.closeIndexes(); err != nil {
			return err
		}
		return s.closeDatabase()
	}
}

func (s *Session) fieldList(cmd *lang.Command) ([]int, *engine.Error) {
	if len(cmd.Fields) == 0 {
		idxs := make([]int, s.Current.NumFields())
		for i := range idxs {
			idxs[i] = i
		}
		return idxs, nil
	}
	idxs := make([]int, 0, len(cmd.Fields))
	for _, fe := range cmd.Fields {
		if fe.Kind != lang.ExprIdent {
			continue
		}
		n := s.Current.FieldNumber(fe.Str)
		if n >= 0 {
			idxs = append(idxs, n)
		}
	}
	return idxs, nil
}

func (s *Session) formatRecordLine(fieldIdxs []int) (string, *engine.Error) {
	parts := make([]string, 0, len(fieldIdxs)+1)
	parts = append(parts, fmt.Sprintf("%5d", s.Current.RecNo()))
	if s.Current.Deleted() {
		parts = append(parts, "*")
	}
	for _, fi := range fieldIdxs {
		fd, err := s.Current.Field(fi)
		if err != nil {
			return "", err
		}
		parts = append(parts, s.readField(fd).ToString())
	}
	return strings.Join(parts, " "), nil
}

func (s *Session) doListDisplay(cmd *lang.Command) *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	idxs, ferr := s.fieldList(cmd)
	if ferr != nil {
		return ferr
	}
	return s.forEachRecord(cmd, func() (bool, *engine.Error) {
		if cmd.Off {
			return false, nil
		}
		line, err := s.formatRecordLine(idxs)
		if err != nil {
			return false, err
		}
		s.write(line)
		return false, nil
	})
}

func (s *Session) doGo(cmd *lang.Command) *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	switch {
	case cmd.Top:
		return s.Current.Top()
	case cmd.Bottom:
		return s.Current.Bottom()
	case cmd.RecNo != nil:
		v, err := s.eval(cmd.RecNo)
		if err != nil {
			return err
		}
		return s.Current.Goto(uint32(v.ToNumber()))
	default:
		return nil
	}
}

func (s *Session) doSkip(cmd *lang.Command) *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	delta := int64(1)
	if cmd.SkipCount != nil {
		v, err := s.eval(cmd.SkipCount)
		if err != nil {
			return err
		}
		delta = int64(v.ToNumber())
	}
	return s.Current.Skip(delta)
}

// matchesCondition evaluates cmd's FOR condition, true when absent.
func (s *Session) matchesCondition(cond *lang.Expr) (bool, *engine.Error) {
	if cond == nil {
		return true, nil
	}
	v, err := s.eval(cond)
	if err != nil {
		return false, err
	}
	return v.ToLogical(), nil
}

func (s *Session) doLocate(cmd *lang.Command) *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	s.LocateCond = cmd.Condition
	if cmd.Scope.Kind == lang.ScopeNone && cmd.Scope.Count == nil {
		cmd.Scope = lang.Scope{Kind: lang.ScopeAll}
	}
	found := false
	err := s.forEachRecord(cmd, func() (bool, *engine.Error) {
		found = true
		return true, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return s.Current.Goto(s.Current.RecordCount() + 1)
	}
	return nil
}

func (s *Session) doContinue() *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	// resume after the record LOCATE (or the last CONTINUE) stopped on
	if err := s.Current.Skip(1); err != nil {
		return err
	}
	cmd := &lang.Command{
		Scope:     lang.Scope{Kind: lang.ScopeRest},
		Condition: s.LocateCond,
	}
	found := false
	err := s.forEachRecord(cmd, func() (bool, *engine.Error) {
		if s.Current.RecNo() == 0 {
			return false, nil
		}
		found = true
		return true, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return s.Current.Goto(s.Current.RecordCount() + 1)
	}
	return nil
}

func (s *Session) doScopedMutate(cmd *lang.Command, fn func(*engine.Dbf) *engine.Error) *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	if cmd.Scope.Kind == lang.ScopeNone && cmd.Condition == nil && cmd.WhileCond == nil {
		return fn(s.Current)
	}
	return s.forEachRecord(cmd, func() (bool, *engine.Error) {
		return false, fn(s.Current)
	})
}

func (s *Session) doReplace(cmd *lang.Command) *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	apply := func() (bool, *engine.Error) {
		for _, rp := range cmd.Replacements {
			n := s.Current.FieldNumber(rp.Field)
			if n < 0 {
				s.write(fmt.Sprintf("field not found: %s", rp.Field))
				continue // unknown field: skip rather than abort the whole REPLACE
			}
			fd, ferr := s.Current.Field(n)
			if ferr != nil {
				return false, ferr
			}
			v, verr := s.eval(rp.Value)
			if verr != nil {
				return false, verr
			}
			if werr := s.writeField(fd, v); werr != nil {
				return false, werr
			}
		}
		return false, nil
	}
	if cmd.Scope.Kind == lang.ScopeNone && cmd.Condition == nil && cmd.WhileCond == nil {
		_, err := apply()
		return err
	}
	return s.forEachRecord(cmd, apply)
}

func (s *Session) doStore(cmd *lang.Command) *engine.Error {
	v, err := s.eval(cmd.Value)
	if err != nil {
		return err
	}
	s.Vars.Store(cmd.Var, v)
	for _, extra := range cmd.TargetVars {
		s.Vars.Store(extra, v)
	}
	return nil
}

func (s *Session) doCreate(cmd *lang.Command) *engine.Error {
	fields := make([]engine.FieldDef, len(cmd.CreateFields))
	for i, cf := range cmd.CreateFields {
		fields[i] = engine.FieldDef{
			Name:     cf.Name,
			Type:     engine.FieldType(cf.Type),
			Length:   cf.Length,
			Decimals: cf.Decimals,
		}
	}
	d, err := engine.Create(s.resolvePath(cmd.Filename), fields)
	if err != nil {
		return err
	}
	return d.Close()
}

func (s *Session) doIndex(cmd *lang.Command) *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	if len(s.indexes) >= maxOpenIndexes {
		return engine.NewError(engine.KindInvalidIndex, "too many open indexes")
	}
	sample, serr := s.eval(cmd.KeyExpr)
	if serr != nil {
		return serr
	}
	keyType, keyLen := inferKeyTypeLength(sample)
	idx, err := engine.CreateIndex(s.resolvePath(cmd.Filename), exprText(cmd.KeyExpr), keyType, keyLen, cmd.Unique, cmd.Descending, engine.DefaultOrder)
	if err != nil {
		return err
	}
	oi := &openIndex{idx: idx, keyExpr: cmd.KeyExpr, path: cmd.Filename}
	if _, rerr := idx.Reindex(s.Current, func(d *engine.Dbf) ([]byte, *engine.Error) {
		v, verr := s.eval(cmd.KeyExpr)
		if verr != nil {
			return nil, verr
		}
		return encodeKey(keyType, keyLen, v, s.ExactMatch), nil
	}); rerr != nil {
		idx.Close()
		return rerr
	}
	s.indexes = append(s.indexes, oi)
	s.Order = len(s.indexes)
	return nil
}

func (s *Session) doReindex() *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	for _, oi := range s.indexes {
		keyType, keyLen := oi.idx.KeyType(), oi.idx.KeyLength()
		if _, err := oi.idx.Reindex(s.Current, func(d *engine.Dbf) ([]byte, *engine.Error) {
			v, verr := s.eval(oi.keyExpr)
			if verr != nil {
				return nil, verr
			}
			return encodeKey(keyType, keyLen, v, s.ExactMatch), nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) doSeekFind(cmd *lang.Command) *engine.Error {
	oi := s.controllingIndex()
	if oi == nil {
		return engine.NewError(engine.KindInvalidIndex, "no controlling index")
	}
	v, err := s.eval(cmd.Key)
	if err != nil {
		return err
	}
	key := encodeKey(oi.idx.KeyType(), oi.idx.KeyLength(), v, s.ExactMatch)
	if serr := oi.idx.Seek(key); serr != nil {
		return serr
	}
	if oi.idx.Found() || !oi.idx.Eof() {
		return s.Current.Goto(oi.idx.RecNo())
	}
	return s.Current.Goto(s.Current.RecordCount() + 1)
}

func (s *Session) doSet(cmd *lang.Command) *engine.Error {
	switch strings.ToUpper(cmd.Option) {
	case "DELETED":
		s.DeletedHidden = cmd.On
	case "EXACT":
		s.ExactMatch = cmd.On
	case "ORDER":
		if cmd.OptVal != nil {
			v, err := s.eval(cmd.OptVal)
			if err != nil {
				return err
			}
			s.Order = int(v.ToNumber())
		}
	case "INDEX":
		// SET INDEX TO name opens the index, adds it to the open set and
		// makes it controlling; a bare `SET INDEX TO` with no filename
		// closes all of them.
		name := filenameFromExpr(cmd.OptVal)
		if name == "" {
			return s.closeIndexes()
		}
		if len(s.indexes) >= maxOpenIndexes {
			return engine.NewError(engine.KindInvalidIndex, "too many open indexes")
		}
		idx, err := engine.OpenIndex(s.resolvePath(name))
		if err != nil {
			return err
		}
		// the key AST is re-parsed from the text stored in the header
		keyExpr := lang.NewParser(idx.KeyExpr()).ParseExpr()
		s.indexes = append(s.indexes, &openIndex{idx: idx, keyExpr: keyExpr, path: name})
		s.Order = len(s.indexes)
	}
	return nil
}

func (s *Session) doClear(cmd *lang.Command) *engine.Error {
	if cmd.All {
		s.Vars.ReleaseAll()
	}
	return nil
}

func (s *Session) doCount(cmd *lang.Command) *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	n := 0.0
	if cmd.Scope.Kind == lang.ScopeNone && cmd.Condition == nil && cmd.WhileCond == nil {
		cmd.Scope = lang.Scope{Kind: lang.ScopeAll}
	}
	if err := s.forEachRecord(cmd, func() (bool, *engine.Error) { n++; return false, nil }); err != nil {
		return err
	}
	if len(cmd.TargetVars) > 0 {
		s.Vars.Store(cmd.TargetVars[0], lang.NumberVal(n))
	}
	return nil
}

func (s *Session) doSumAverage(cmd *lang.Command, average bool) *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	if cmd.Scope.Kind == lang.ScopeNone && cmd.Condition == nil && cmd.WhileCond == nil {
		cmd.Scope = lang.Scope{Kind: lang.ScopeAll}
	}
	sums := make([]float64, len(cmd.Aggregates))
	count := 0.0
	err := s.forEachRecord(cmd, func() (bool, *engine.Error) {
		for i, e := range cmd.Aggregates {
			v, verr := s.eval(e)
			if verr != nil {
				return false, verr
			}
			sums[i] += v.ToNumber()
		}
		count++
		return false, nil
	})
	if err != nil {
		return err
	}
	for i, target := range cmd.TargetVars {
		if i >= len(sums) {
			break
		}
		result := sums[i]
		if average && count > 0 {
			result /= count
		}
		s.Vars.Store(target, lang.NumberVal(result))
	}
	return nil
}

func (s *Session) doCopy(cmd *lang.Command) *engine.Error {
	if s.Current == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}
	idxs := make([]int, 0, len(cmd.CopyFields))
	if len(cmd.CopyFields) == 0 {
		for i := 0; i < s.Current.NumFields(); i++ {
			idxs = append(idxs, i)
		}
	} else {
		for _, name := range cmd.CopyFields {
			n := s.Current.FieldNumber(name)
			if n >= 0 {
				idxs = append(idxs, n)
			}
		}
	}
	fields := make([]engine.FieldDef, len(idxs))
	for i, fi := range idxs {
		fd, err := s.Current.Field(fi)
		if err != nil {
			return err
		}
		fields[i] = fd
	}
	dest, err := engine.Create(s.resolvePath(cmd.Filename), fields)
	if err != nil {
		return err
	}
	defer dest.Close()

	srcTotal := s.Current.RecordCount()
	savedRec := s.Current.RecNo()
	for r := uint32(1); r <= srcTotal; r++ {
		if gerr := s.Current.Goto(r); gerr != nil {
			return gerr
		}
		if s.Current.Deleted() {
			continue
		}
		if aerr := dest.AppendBlank(); aerr != nil {
			return aerr
		}
		for i, fi := range idxs {
			fd, ferr := s.Current.Field(fi)
			if ferr != nil {
				return ferr
			}
			if cerr := copyFieldValue(dest, fields[i], s.readField(fd)); cerr != nil {
				return cerr
			}
		}
	}
	if gerr := s.Current.Goto(savedRec); gerr != nil {
		return gerr
	}
	return nil
}

func copyFieldValue(dest *engine.Dbf, fd engine.FieldDef, v lang.Value) *engine.Error {
	rec := dest.Record()
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
		dest.MarkModified()
	}
	return err
}

func (s *Session) doInputLike(cmd *lang.Command) *engine.Error {
	prompt := ""
	if cmd.Prompt != nil {
		v, err := s.eval(cmd.Prompt)
		if err != nil {
			return err
		}
		prompt = v.ToString()
	}
	if s.In == nil {
		return nil
	}
	reply := s.In(prompt)
	if cmd.ToVar != "" {
		s.Vars.Store(cmd.ToVar, lang.StringVal(reply))
	}
	return nil
}

func (s *Session) doAt(cmd *lang.Command) *engine.Error {
	v, err := s.eval(cmd.SayExpr)
	if err != nil {
		return err
	}
	s.write(v.ToString())
	if cmd.Kind == lang.CmdAtGet && cmd.GetVar != "" && s.In != nil {
		reply := s.In("")
		s.Vars.Store(cmd.GetVar, lang.StringVal(reply))
	}
	return nil
}

// filenameFromExpr reads a bare identifier or string-literal expr back
// out as filename text, the shape SET INDEX TO's operand parses into.
func filenameFromExpr(e *lang.Expr) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case lang.ExprIdent, lang.ExprString:
		return e.Str
	default:
		return ""
	}
}

// exprText renders the literal-ish source text of a key expression for
// storage in an XDX header, which remembers the expression it was
// built from. Only the identifier/field/literal shapes that make sense
// as an index key are rendered; anything else is stored as the
// placeholder text EXPR. REINDEX on an index built in this session
// evaluates the live *Expr, not this text.
func exprText(e *lang.Expr) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case lang.ExprIdent:
		return e.Str
	case lang.ExprField:
		return e.Alias + "->" + e.Field
	case lang.ExprString:
		return e.Str
	default:
		return "EXPR"
	}
}

// forEachRecord implements the shared scope/FOR/WHILE iteration
// algorithm: position, then per record test scope-stop, WHILE,
// FOR (advancing without counting on failure), run body, count, advance.
func (s *Session) forEachRecord(cmd *lang.Command, body func() (stop bool, err *engine.Error)) *engine.Error {
	d := s.Current
	if d == nil {
		return engine.NewError(engine.KindNoDatabase, "no database in use")
	}

	scopeCount := -1
	if cmd.Scope.Count != nil {
		v, err := s.eval(cmd.Scope.Count)
		if err != nil {
			return err
		}
		scopeCount = int(v.ToNumber())
	}

	switch cmd.Scope.Kind {
	case lang.ScopeAll:
		if err := d.Top(); err != nil {
			return err
		}
	case lang.ScopeNext, lang.ScopeRecord, lang.ScopeRest:
		// starts at current cursor
	default:
		if err := d.Top(); err != nil {
			return err
		}
	}

	processed := 0
	for {
		if s.Cancel {
			return nil
		}
		if d.Eof() || d.Bof() {
			return nil
		}
		switch cmd.Scope.Kind {
		case lang.ScopeNext:
			if scopeCount >= 0 && processed >= scopeCount {
				return nil
			}
		case lang.ScopeRecord:
			if processed >= 1 {
				return nil
			}
		}

		if s.DeletedHidden && d.Deleted() {
			if err := d.Skip(1); err != nil {
				return err
			}
			continue
		}

		if cmd.WhileCond != nil {
			ok, err := s.matchesCondition(cmd.WhileCond)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}

		if cmd.Condition != nil {
			ok, err := s.matchesCondition(cmd.Condition)
			if err != nil {
				return err
			}
			if !ok {
				if err := d.Skip(1); err != nil {
					return err
				}
				continue
			}
		}

		stop, err := body()
		if err != nil {
			return err
		}
		processed++
		if stop {
			return nil
		}
		if err := d.Skip(1); err != nil {
			return err
		}
	}
}
