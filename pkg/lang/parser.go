package lang

import (
	"fmt"
	"strings"
)

// Parser turns one line of dBASE source into a Command AST:
// recursive-descent for commands, precedence-climbing for expressions,
// one command per call with error synchronisation to the next newline.
type Parser struct {
	lex       *Lexer
	HadError  bool
	panicMode bool
	lastErr   *SyntaxError
}

// NewParser returns a Parser reading from src.
func NewParser(src string) *Parser {
	return &Parser{lex: NewLexer(src)}
}

func (p *Parser) ClearError() {
	p.HadError = false
	p.lastErr = nil
}

func (p *Parser) LastError() *SyntaxError { return p.lastErr }

func (p *Parser) peek() Token {
	t, err := p.lex.Peek()
	if err != nil {
		p.reportLex(err)
		return Token{Kind: EOF}
	}
	return t
}

func (p *Parser) advance() Token {
	t, err := p.lex.Next()
	if err != nil {
		p.reportLex(err)
		return Token{Kind: EOF}
	}
	return t
}

func (p *Parser) reportLex(err *SyntaxError) {
	p.HadError = true
	p.lastErr = err
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.HadError = true
	p.lastErr = &SyntaxError{Message: fmt.Sprintf(format, args...), Line: tok.Line, Col: tok.Col}
}

func (p *Parser) expect(kind Kind, what string) Token {
	t := p.peek()
	if t.Kind != kind {
		p.errorf(t, "expected %s", what)
		return t
	}
	return p.advance()
}

func (p *Parser) match(kind Kind) bool {
	if p.peek().Kind == kind {
		p.advance()
		return true
	}
	return false
}

// skipNewlines consumes any run of blank Newline tokens.
func (p *Parser) skipNewlines() {
	for p.peek().Kind == Newline {
		p.advance()
	}
}

// synchronize discards tokens through the next newline after a syntax
// error, so the caller can resume at the next line.
func (p *Parser) synchronize() {
	for {
		t := p.peek()
		if t.Kind == Newline || t.Kind == EOF {
			if t.Kind == Newline {
				p.advance()
			}
			p.panicMode = false
			return
		}
		p.advance()
	}
}

// ParseCommand parses and returns one command; on syntax error it
// returns (nil, err) having already synchronised to the next line.
func (p *Parser) ParseCommand() (*Command, *SyntaxError) {
	p.skipNewlines()
	if p.peek().Kind == EOF {
		return nil, nil
	}
	cmd := p.parseCommandInner()
	if p.panicMode {
		p.synchronize()
		return nil, p.lastErr
	}
	// drain a trailing newline
	p.match(Newline)
	return cmd, nil
}

func (p *Parser) parseCommandInner() *Command {
	line := p.peek().Line
	tok := p.peek()

	// assignment / bare-identifier print-short-form ambiguity
	if tok.Kind == Ident {
		name := tok.Text
		p.advance()
		nxt := p.peek()
		if nxt.Kind == Eq || nxt.Kind == Assign {
			p.advance()
			val := p.parseExprEntry()
			return &Command{Kind: CmdStore, Line: line, Var: strings.ToUpper(name), Value: val}
		}
		// not an assignment: treat as "? ident" short form, with ident
		// re-fed as the start of an expression
		expr := p.parseIdentTail(name, line)
		expr = p.continueExprFromPrimary(expr)
		if !p.atStatementEnd() {
			p.errorf(p.peek(), "unexpected token after expression")
			return nil
		}
		return &Command{Kind: CmdPrint, Line: line, PrintExprs: []*Expr{expr}}
	}

	switch tok.Kind {
	case Question:
		p.advance()
		return &Command{Kind: CmdPrint, Line: line, PrintExprs: p.parseExprListOpt()}
	case QuestionQuestion:
		p.advance()
		return &Command{Kind: CmdPrintInline, Line: line, PrintExprs: p.parseExprListOpt()}
	case KwUse:
		return p.parseUse(line)
	case KwClose:
		return p.parseClose(line)
	case KwList:
		return p.parseListDisplay(line, CmdList)
	case KwDisplay:
		return p.parseListDisplay(line, CmdDisplay)
	case KwGo, KwGoto:
		return p.parseGo(line)
	case KwSkip:
		return p.parseSkip(line)
	case KwLocate:
		return p.parseLocate(line)
	case KwContinue:
		p.advance()
		return &Command{Kind: CmdContinue, Line: line}
	case KwAppend:
		return p.parseAppend(line)
	case KwDelete:
		return p.parseScopedCmd(line, CmdDelete)
	case KwRecall:
		return p.parseScopedCmd(line, CmdRecall)
	case KwPack:
		p.advance()
		return &Command{Kind: CmdPack, Line: line}
	case KwZap:
		p.advance()
		return &Command{Kind: CmdZap, Line: line}
	case KwReplace:
		return p.parseReplace(line)
	case KwStore:
		return p.parseStore(line)
	case KwCreate:
		return p.parseCreate(line)
	case KwIndex:
		return p.parseIndex(line)
	case KwReindex:
		p.advance()
		return &Command{Kind: CmdReindex, Line: line}
	case KwSeek:
		p.advance()
		return &Command{Kind: CmdSeek, Line: line, Key: p.parseExprEntry()}
	case KwFind:
		p.advance()
		return &Command{Kind: CmdFind, Line: line, Key: p.parseExprEntry()}
	case KwSet:
		return p.parseSet(line)
	case KwSelect:
		p.advance()
		return &Command{Kind: CmdSelect, Line: line, Area: p.parseExprEntry()}
	case KwClear:
		return p.parseClear(line)
	case KwQuit:
		p.advance()
		return &Command{Kind: CmdQuit, Line: line}
	case KwCancel:
		p.advance()
		return &Command{Kind: CmdCancel, Line: line}
	case KwReturn:
		p.advance()
		var v *Expr
		if !p.atStatementEnd() {
			v = p.parseExprEntry()
		}
		return &Command{Kind: CmdReturn, Line: line, Value: v}
	case KwPublic, KwPrivate, KwLocal:
		return p.parseVarDecl(line, tok.Kind)
	case KwRelease:
		return p.parseRelease(line)
	case KwDeclare:
		return p.parseDeclare(line)
	case KwCount:
		return p.parseAggregate(line, CmdCount)
	case KwSum:
		return p.parseAggregate(line, CmdSum)
	case KwAverage:
		return p.parseAggregate(line, CmdAverage)
	case KwCopy:
		return p.parseCopy(line)
	case KwWait:
		return p.parseInputLike(line, CmdWait)
	case KwAccept:
		return p.parseInputLike(line, CmdAccept)
	case KwInput:
		return p.parseInputLike(line, CmdInput)
	case KwDo:
		return p.parseDo(line)
	case KwIf, KwFor:
		return p.parseControlFlow(line, tok.Kind)
	case KwExit:
		p.advance()
		return &Command{Kind: CmdExit, Line: line}
	case KwLoop:
		p.advance()
		return &Command{Kind: CmdLoop, Line: line}
	case KwProcedure, KwFunction:
		return p.parseProc(line, tok.Kind)
	case KwParameters:
		return p.parseParameters(line)
	case KwRead:
		p.advance()
		return &Command{Kind: CmdRead, Line: line}
	case KwBrowse:
		p.advance()
		return &Command{Kind: CmdBrowse, Line: line}
	case KwEdit:
		p.advance()
		return &Command{Kind: CmdEdit, Line: line}
	case KwErase:
		p.advance()
		f := p.expect(Ident, "filename")
		return &Command{Kind: CmdErase, Line: line, Filename: f.Text}
	case KwRun:
		p.advance()
		return &Command{Kind: CmdRun, Line: line, ShellCommand: p.restOfLine()}
	case KwHelp:
		p.advance()
		return &Command{Kind: CmdHelp, Line: line}
	case At:
		return p.parseAt(line)
	default:
		p.errorf(tok, "unexpected token")
		return nil
	}
}

func (p *Parser) restOfLine() string {
	var b strings.Builder
	for p.peek().Kind != Newline && p.peek().Kind != EOF {
		t := p.advance()
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

func (p *Parser) atStatementEnd() bool {
	k := p.peek().Kind
	return k == Newline || k == EOF
}

// parseExprEntry is ParseExpr's internal alias used by command parse
// functions.
func (p *Parser) parseExprEntry() *Expr { return p.ParseExpr() }

// ParseExpr parses one expression at the lowest precedence (.OR.).
func (p *Parser) ParseExpr() *Expr { return p.parseOr() }

func (p *Parser) parseOr() *Expr {
	left := p.parseAnd()
	for p.peek().Kind == DotOr {
		op := p.advance()
		right := p.parseAnd()
		left = &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}

func (p *Parser) parseAnd() *Expr {
	left := p.parseNot()
	for p.peek().Kind == DotAnd {
		op := p.advance()
		right := p.parseNot()
		left = &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}

func (p *Parser) parseNot() *Expr {
	if p.peek().Kind == DotNot {
		op := p.advance()
		operand := p.parseNot()
		return &Expr{Kind: ExprUnary, Op: op.Kind, Right: operand, Line: op.Line}
	}
	return p.parseComparison()
}

func isComparisonOp(k Kind) bool {
	switch k {
	case Eq, EqEq, NotEq, Hash, Lt, LtEq, Gt, GtEq, Dollar:
		return true
	}
	return false
}

func (p *Parser) parseComparison() *Expr {
	left := p.parseAdditive()
	for isComparisonOp(p.peek().Kind) {
		op := p.advance()
		right := p.parseAdditive()
		left = &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}

func (p *Parser) parseAdditive() *Expr {
	left := p.parseMultiplicative()
	for p.peek().Kind == Plus || p.peek().Kind == Minus {
		op := p.advance()
		right := p.parseMultiplicative()
		left = &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}

func (p *Parser) parseMultiplicative() *Expr {
	left := p.parsePower()
	for p.peek().Kind == Star || p.peek().Kind == Slash || p.peek().Kind == Percent {
		op := p.advance()
		right := p.parsePower()
		left = &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}

func (p *Parser) parsePower() *Expr {
	left := p.parseUnary()
	if p.peek().Kind == Caret {
		op := p.advance()
		right := p.parsePower() // right-associative
		return &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}

func (p *Parser) parseUnary() *Expr {
	if p.peek().Kind == Plus || p.peek().Kind == Minus {
		op := p.advance()
		operand := p.parseUnary()
		return &Expr{Kind: ExprUnary, Op: op.Kind, Right: operand, Line: op.Line}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() *Expr {
	tok := p.peek()
	switch tok.Kind {
	case Number:
		p.advance()
		return &Expr{Kind: ExprNumber, Number: tok.Number, Line: tok.Line}
	case String:
		p.advance()
		return &Expr{Kind: ExprString, Str: tok.Text, Line: tok.Line}
	case DateLiteral:
		p.advance()
		return &Expr{Kind: ExprDate, Str: tok.Text, Line: tok.Line}
	case DotTrue:
		p.advance()
		return &Expr{Kind: ExprLogical, Logical: true, Line: tok.Line}
	case DotFalse:
		p.advance()
		return &Expr{Kind: ExprLogical, Logical: false, Line: tok.Line}
	case Amp:
		p.advance()
		name := p.expect(Ident, "identifier after &")
		return &Expr{Kind: ExprMacro, Str: name.Text, Line: tok.Line}
	case LParen:
		p.advance()
		inner := p.ParseExpr()
		p.expect(RParen, "')'")
		return inner
	case Ident:
		p.advance()
		base := p.parseIdentTail(tok.Text, tok.Line)
		return base
	default:
		p.errorf(tok, "expected expression")
		return &Expr{Kind: ExprString, Str: ""}
	}
}

// parseIdentTail continues parsing after an identifier has already
// been consumed: function call, array index, or alias->field.
func (p *Parser) parseIdentTail(name string, line int) *Expr {
	if p.peek().Kind == LParen {
		p.advance()
		var args []*Expr
		if p.peek().Kind != RParen {
			args = append(args, p.ParseExpr())
			for p.match(Comma) {
				args = append(args, p.ParseExpr())
			}
		}
		p.expect(RParen, "')'")
		return &Expr{Kind: ExprCall, Name: name, Args: args, Line: line}
	}
	if p.peek().Kind == LBracket {
		p.advance()
		idx := p.ParseExpr()
		p.expect(RBracket, "']'")
		return &Expr{Kind: ExprArrayIndex, Name: name, Args: []*Expr{idx}, Line: line}
	}
	if p.peek().Kind == Arrow {
		p.advance()
		field := p.expect(Ident, "field name after ->")
		return &Expr{Kind: ExprField, Alias: name, Field: field.Text, Line: line}
	}
	return &Expr{Kind: ExprIdent, Str: name, Line: line}
}

// continueExprFromPrimary lets the bare-identifier print-short-form
// participate in a full expression (e.g. `X + 1` typed alone on a
// line), by resuming precedence climbing above a parsed primary.
func (p *Parser) continueExprFromPrimary(primary *Expr) *Expr {
	left := p.continuePower(primary)
	left = p.continueMultiplicative(left)
	left = p.continueAdditive(left)
	left = p.continueComparison(left)
	left = p.continueAnd(left)
	left = p.continueOr(left)
	return left
}

func (p *Parser) continuePower(left *Expr) *Expr {
	if p.peek().Kind == Caret {
		op := p.advance()
		right := p.parsePower()
		return &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}
func (p *Parser) continueMultiplicative(left *Expr) *Expr {
	for p.peek().Kind == Star || p.peek().Kind == Slash || p.peek().Kind == Percent {
		op := p.advance()
		right := p.parsePower()
		left = &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}
func (p *Parser) continueAdditive(left *Expr) *Expr {
	for p.peek().Kind == Plus || p.peek().Kind == Minus {
		op := p.advance()
		right := p.parseMultiplicative()
		left = &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}
func (p *Parser) continueComparison(left *Expr) *Expr {
	for isComparisonOp(p.peek().Kind) {
		op := p.advance()
		right := p.parseAdditive()
		left = &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}
func (p *Parser) continueAnd(left *Expr) *Expr {
	for p.peek().Kind == DotAnd {
		op := p.advance()
		right := p.parseNot()
		left = &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}
func (p *Parser) continueOr(left *Expr) *Expr {
	for p.peek().Kind == DotOr {
		op := p.advance()
		right := p.parseAnd()
		left = &Expr{Kind: ExprBinary, Op: op.Kind, Left: left, Right: right, Line: op.Line}
	}
	return left
}

