package lang

import "strings"

// parseFilename accepts either a bare identifier or a quoted string as
// a filename argument — both appear in real-world scripts.
func (p *Parser) parseFilename() string {
	t := p.peek()
	if t.Kind == String || t.Kind == Ident {
		p.advance()
		return t.Text
	}
	p.errorf(t, "expected filename")
	return ""
}

func isScopeOrForStart(k Kind) bool {
	switch k {
	case KwAll, KwNext, KwRecord, KwRest, KwFor, KwWhile:
		return true
	}
	return false
}

// parseScopeAndCondition consumes any run of scope/FOR/WHILE clauses
// shared by the iterating commands.
func (p *Parser) parseScopeAndCondition(cmd *Command) {
	for {
		switch p.peek().Kind {
		case KwAll:
			p.advance()
			cmd.Scope = Scope{Kind: ScopeAll}
		case KwNext:
			p.advance()
			cmd.Scope = Scope{Kind: ScopeNext, Count: p.ParseExpr()}
		case KwRecord:
			p.advance()
			cmd.Scope = Scope{Kind: ScopeRecord, Count: p.ParseExpr()}
		case KwRest:
			p.advance()
			cmd.Scope = Scope{Kind: ScopeRest}
		case KwFor:
			p.advance()
			cmd.Condition = p.ParseExpr()
		case KwWhile:
			p.advance()
			cmd.WhileCond = p.ParseExpr()
		default:
			return
		}
	}
}

func (p *Parser) parseExprListOpt() []*Expr {
	if p.atStatementEnd() {
		return nil
	}
	list := []*Expr{p.ParseExpr()}
	for p.match(Comma) {
		list = append(list, p.ParseExpr())
	}
	return list
}

func (p *Parser) parseUse(line int) *Command {
	p.advance()
	cmd := &Command{Kind: CmdUse, Line: line}
	cmd.Filename = p.parseFilename()
	for {
		switch p.peek().Kind {
		case KwAlias:
			p.advance()
			cmd.Alias = p.expect(Ident, "alias name").Text
		case KwExclusive:
			p.advance()
			cmd.Exclusive = true
		case KwShared:
			p.advance()
			cmd.Shared = true
		default:
			return cmd
		}
	}
}

func (p *Parser) parseClose(line int) *Command {
	p.advance()
	cmd := &Command{Kind: CmdClose, Line: line, CloseWhat: CloseAll}
	switch p.peek().Kind {
	case KwDatabases:
		p.advance()
		cmd.CloseWhat = CloseDatabases
	case KwIndexes:
		p.advance()
		cmd.CloseWhat = CloseIndexes
	case KwAll:
		p.advance()
		cmd.CloseWhat = CloseAll
	}
	return cmd
}

func (p *Parser) parseListDisplay(line int, kind CmdKind) *Command {
	p.advance()
	cmd := &Command{Kind: kind, Line: line}
	if p.peek().Kind == KwOff {
		p.advance()
		cmd.Off = true
	}
	if p.peek().Kind == Ident {
		cmd.Fields = p.parseExprListOpt()
	}
	p.parseScopeAndCondition(cmd)
	return cmd
}

func (p *Parser) parseGo(line int) *Command {
	p.advance()
	p.match(KwTo) // GOTO or "GO TO" both accepted
	cmd := &Command{Kind: CmdGo, Line: line}
	switch p.peek().Kind {
	case KwTop:
		p.advance()
		cmd.Top = true
	case KwBottom:
		p.advance()
		cmd.Bottom = true
	default:
		cmd.RecNo = p.ParseExpr()
	}
	return cmd
}

func (p *Parser) parseSkip(line int) *Command {
	p.advance()
	cmd := &Command{Kind: CmdSkip, Line: line}
	if !p.atStatementEnd() {
		cmd.SkipCount = p.ParseExpr()
	}
	return cmd
}

func (p *Parser) parseLocate(line int) *Command {
	p.advance()
	cmd := &Command{Kind: CmdLocate, Line: line}
	p.parseScopeAndCondition(cmd)
	return cmd
}

func (p *Parser) parseAppend(line int) *Command {
	p.advance()
	p.match(KwBlank)
	return &Command{Kind: CmdAppendBlank, Line: line}
}

func (p *Parser) parseScopedCmd(line int, kind CmdKind) *Command {
	p.advance()
	cmd := &Command{Kind: kind, Line: line}
	p.parseScopeAndCondition(cmd)
	return cmd
}

func (p *Parser) parseReplace(line int) *Command {
	p.advance()
	cmd := &Command{Kind: CmdReplace, Line: line}
	for {
		fieldTok := p.expect(Ident, "field name")
		p.expect(KwWith, "WITH")
		val := p.ParseExpr()
		cmd.Replacements = append(cmd.Replacements, ReplacePair{Field: strings.ToUpper(fieldTok.Text), Value: val})
		if !p.match(Comma) {
			break
		}
	}
	p.parseScopeAndCondition(cmd)
	return cmd
}

func (p *Parser) parseStore(line int) *Command {
	p.advance()
	val := p.ParseExpr()
	p.expect(KwTo, "TO")
	varTok := p.expect(Ident, "variable name")
	cmd := &Command{Kind: CmdStore, Line: line, Value: val, Var: strings.ToUpper(varTok.Text)}
	for p.match(Comma) {
		t := p.expect(Ident, "variable name")
		cmd.TargetVars = append(cmd.TargetVars, strings.ToUpper(t.Text))
	}
	return cmd
}

// parseCreate accepts an optional inline schema in parentheses, e.g.
// `CREATE people (NAME C 20, AGE N 3 0, ACTIVE L)` — a supplemented
// non-interactive form of the originally-interactive CREATE dialog.
func (p *Parser) parseCreate(line int) *Command {
	p.advance()
	cmd := &Command{Kind: CmdCreate, Line: line}
	cmd.Filename = p.parseFilename()
	if p.match(LParen) {
		for {
			nameTok := p.expect(Ident, "field name")
			typeTok := p.expect(Ident, "field type")
			spec := CreateFieldSpec{Name: strings.ToUpper(nameTok.Text)}
			upperType := strings.ToUpper(typeTok.Text)
			if len(upperType) > 0 {
				spec.Type = upperType[0]
			}
			if p.peek().Kind == Number {
				spec.Length = int(p.advance().Number)
			}
			if p.peek().Kind == Number {
				spec.Decimals = int(p.advance().Number)
			}
			cmd.CreateFields = append(cmd.CreateFields, spec)
			if !p.match(Comma) {
				break
			}
		}
		p.expect(RParen, "')'")
	}
	return cmd
}

func (p *Parser) parseIndex(line int) *Command {
	p.advance()
	p.expect(KwOn, "ON")
	keyExpr := p.ParseExpr()
	p.expect(KwTo, "TO")
	filename := p.parseFilename()
	cmd := &Command{Kind: CmdIndex, Line: line, KeyExpr: keyExpr, Filename: filename}
	for {
		switch p.peek().Kind {
		case KwUnique:
			p.advance()
			cmd.Unique = true
		case KwDescending:
			p.advance()
			cmd.Descending = true
		default:
			return cmd
		}
	}
}

func (p *Parser) parseSet(line int) *Command {
	p.advance()
	optTok := p.advance()
	cmd := &Command{Kind: CmdSet, Line: line, Option: strings.ToUpper(optTok.Text)}
	switch p.peek().Kind {
	case KwOn:
		p.advance()
		cmd.On = true
	case KwOff:
		p.advance()
		cmd.On = false
	case KwTo:
		p.advance()
		if !p.atStatementEnd() {
			cmd.OptVal = p.ParseExpr()
		}
	}
	return cmd
}

func (p *Parser) parseClear(line int) *Command {
	p.advance()
	cmd := &Command{Kind: CmdClear, Line: line}
	switch p.peek().Kind {
	case KwAll:
		p.advance()
		cmd.All = true
	case KwMemory:
		p.advance()
	}
	return cmd
}

func (p *Parser) parseVarDecl(line int, kind Kind) *Command {
	p.advance()
	var ck CmdKind
	switch kind {
	case KwPublic:
		ck = CmdPublic
	case KwPrivate:
		ck = CmdPrivate
	case KwLocal:
		ck = CmdLocal
	}
	cmd := &Command{Kind: ck, Line: line}
	if p.peek().Kind == KwAll {
		p.advance()
		cmd.All = true
		return cmd
	}
	for {
		t := p.expect(Ident, "variable name")
		cmd.Names = append(cmd.Names, strings.ToUpper(t.Text))
		if !p.match(Comma) {
			break
		}
	}
	return cmd
}

func (p *Parser) parseRelease(line int) *Command {
	p.advance()
	cmd := &Command{Kind: CmdRelease, Line: line}
	if p.peek().Kind == KwAll {
		p.advance()
		cmd.All = true
		return cmd
	}
	for {
		t := p.expect(Ident, "variable name")
		cmd.Names = append(cmd.Names, strings.ToUpper(t.Text))
		if !p.match(Comma) {
			break
		}
	}
	return cmd
}

func (p *Parser) parseDeclare(line int) *Command {
	p.advance()
	t := p.expect(Ident, "array name")
	cmd := &Command{Kind: CmdDeclare, Line: line, Var: strings.ToUpper(t.Text)}
	if p.match(LBracket) {
		cmd.ArraySize = p.ParseExpr()
		p.expect(RBracket, "']'")
	}
	return cmd
}

func (p *Parser) parseAggregate(line int, kind CmdKind) *Command {
	p.advance()
	cmd := &Command{Kind: kind, Line: line}
	if kind != CmdCount && !isScopeOrForStart(p.peek().Kind) && p.peek().Kind != KwTo && !p.atStatementEnd() {
		cmd.Aggregates = append(cmd.Aggregates, p.ParseExpr())
		for p.match(Comma) {
			cmd.Aggregates = append(cmd.Aggregates, p.ParseExpr())
		}
	}
	p.parseScopeAndCondition(cmd)
	if p.peek().Kind == KwTo {
		p.advance()
		t := p.expect(Ident, "variable name")
		cmd.TargetVars = append(cmd.TargetVars, strings.ToUpper(t.Text))
		for p.match(Comma) {
			t2 := p.expect(Ident, "variable name")
			cmd.TargetVars = append(cmd.TargetVars, strings.ToUpper(t2.Text))
		}
		p.parseScopeAndCondition(cmd)
	}
	return cmd
}

func (p *Parser) parseCopy(line int) *Command {
	p.advance()
	p.expect(KwTo, "TO")
	cmd := &Command{Kind: CmdCopy, Line: line, Filename: p.parseFilename()}
	if p.peek().Kind == KwFields {
		p.advance()
		for {
			t := p.expect(Ident, "field name")
			cmd.CopyFields = append(cmd.CopyFields, strings.ToUpper(t.Text))
			if !p.match(Comma) {
				break
			}
		}
	}
	return cmd
}

func (p *Parser) parseInputLike(line int, kind CmdKind) *Command {
	p.advance()
	cmd := &Command{Kind: kind, Line: line}
	if !p.atStatementEnd() && p.peek().Kind != KwTo {
		cmd.Prompt = p.ParseExpr()
	}
	if p.peek().Kind == KwTo {
		p.advance()
		t := p.expect(Ident, "variable name")
		cmd.ToVar = strings.ToUpper(t.Text)
	}
	return cmd
}

func (p *Parser) parseAt(line int) *Command {
	p.advance() // '@'
	row := p.ParseExpr()
	p.expect(Comma, "','")
	col := p.ParseExpr()
	p.expect(KwSay, "SAY")
	say := p.ParseExpr()
	cmd := &Command{Kind: CmdAtSay, Line: line, Row: row, Col: col, SayExpr: say}
	if p.peek().Kind == KwGet {
		p.advance()
		v := p.expect(Ident, "variable name")
		cmd.Kind = CmdAtGet
		cmd.GetVar = strings.ToUpper(v.Text)
	}
	return cmd
}

// parseBlockUntil parses statements into a block until the next
// keyword is one of stop, or the input ends — backing IF/DO WHILE/DO
// CASE/FOR bodies, which are parsed but (per the no-interpreter-loop
// scope) never executed here.
func (p *Parser) parseBlockUntil(stop ...Kind) []*Command {
	var block []*Command
	for {
		p.skipNewlines()
		k := p.peek().Kind
		if k == EOF {
			return block
		}
		for _, s := range stop {
			if k == s {
				return block
			}
		}
		cmd := p.parseCommandInner()
		if p.panicMode {
			p.synchronize()
			continue
		}
		p.match(Newline)
		if cmd != nil {
			block = append(block, cmd)
		}
	}
}

func (p *Parser) parseControlFlow(line int, kind Kind) *Command {
	switch kind {
	case KwIf:
		return p.parseIf(line)
	case KwFor:
		return p.parseForLoop(line)
	default:
		return nil
	}
}

func (p *Parser) parseIf(line int) *Command {
	p.advance()
	cond := p.ParseExpr()
	cmd := &Command{Kind: CmdIf, Line: line, Cond: cond}
	cmd.ThenBlock = p.parseBlockUntil(KwElse, KwEndif)
	if p.peek().Kind == KwElse {
		p.advance()
		cmd.ElseBlock = p.parseBlockUntil(KwEndif)
	}
	p.expect(KwEndif, "ENDIF")
	return cmd
}

func (p *Parser) parseForLoop(line int) *Command {
	p.advance()
	varTok := p.expect(Ident, "loop variable")
	p.expect(Eq, "'='")
	start := p.ParseExpr()
	p.expect(KwTo, "TO")
	end := p.ParseExpr()
	cmd := &Command{Kind: CmdFor, Line: line, ForVar: strings.ToUpper(varTok.Text), ForStart: start, ForEnd: end}
	if p.peek().Kind == KwStep {
		p.advance()
		cmd.ForStep = p.ParseExpr()
	}
	cmd.Body = p.parseBlockUntil(KwNext)
	p.expect(KwNext, "NEXT")
	if p.peek().Kind == Ident {
		p.advance()
	}
	return cmd
}

func (p *Parser) parseDo(line int) *Command {
	p.advance()
	switch p.peek().Kind {
	case KwWhile:
		p.advance()
		cond := p.ParseExpr()
		cmd := &Command{Kind: CmdDoWhile, Line: line, Cond: cond}
		cmd.Body = p.parseBlockUntil(KwEnddo)
		p.expect(KwEnddo, "ENDDO")
		return cmd
	case KwCase:
		return p.parseDoCase(line)
	default:
		name := p.expect(Ident, "procedure name")
		cmd := &Command{Kind: CmdDo, Line: line, ProcName: name.Text}
		if p.peek().Kind == KwWith {
			p.advance()
			cmd.CallArgs = append(cmd.CallArgs, p.ParseExpr())
			for p.match(Comma) {
				cmd.CallArgs = append(cmd.CallArgs, p.ParseExpr())
			}
		}
		return cmd
	}
}

func (p *Parser) parseDoCase(line int) *Command {
	p.advance() // CASE
	cmd := &Command{Kind: CmdDoCase, Line: line}
	p.skipNewlines()
	for p.peek().Kind == KwCase {
		p.advance()
		cmd.Cases = append(cmd.Cases, p.ParseExpr())
		cmd.CaseBlocks = append(cmd.CaseBlocks, p.parseBlockUntil(KwCase, KwOtherwise, KwEndcase))
	}
	if p.peek().Kind == KwOtherwise {
		p.advance()
		cmd.Otherwise = p.parseBlockUntil(KwEndcase)
	}
	p.expect(KwEndcase, "ENDCASE")
	return cmd
}

func (p *Parser) parseProc(line int, kind Kind) *Command {
	p.advance()
	name := p.expect(Ident, "name")
	ck := CmdProcedure
	if kind == KwFunction {
		ck = CmdFunction
	}
	return &Command{Kind: ck, Line: line, ProcName: name.Text}
}

func (p *Parser) parseParameters(line int) *Command {
	p.advance()
	cmd := &Command{Kind: CmdParameters, Line: line}
	for {
		t := p.expect(Ident, "parameter name")
		cmd.ParamNames = append(cmd.ParamNames, strings.ToUpper(t.Text))
		if !p.match(Comma) {
			break
		}
	}
	return cmd
}
