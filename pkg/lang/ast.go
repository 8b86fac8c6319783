package lang

// ExprKind identifies the shape of an Expr node.
type ExprKind int

const (
	ExprNumber ExprKind = iota
	ExprString
	ExprDate
	ExprLogical
	ExprIdent
	ExprField // alias->field
	ExprArrayIndex
	ExprCall
	ExprUnary
	ExprBinary
	ExprMacro
)

// Expr is the single node type for every expression shape the parser
// produces; the active union arm is determined by Kind.
type Expr struct {
	Kind ExprKind
	Line int

	Number  float64
	Str     string // ExprString/ExprDate literal text, ExprIdent/ExprMacro name
	Logical bool

	Alias string // ExprField
	Field string // ExprField

	Name  string  // ExprCall / ExprArrayIndex
	Args  []*Expr // ExprCall arguments / ExprArrayIndex single index in Args[0]

	Op    Kind // ExprUnary / ExprBinary
	Left  *Expr
	Right *Expr
}

// ScopeKind is the ALL/NEXT/RECORD/REST qualifier a command accepts.
type ScopeKind int

const (
	ScopeNone ScopeKind = iota
	ScopeAll
	ScopeNext
	ScopeRecord
	ScopeRest
)

// Scope is the parsed scope suffix of an iterating command.
type Scope struct {
	Kind  ScopeKind
	Count *Expr // for NEXT n / RECORD n
}

// CmdKind identifies which command shape a Command carries.
type CmdKind int

const (
	CmdNone CmdKind = iota
	CmdPrint
	CmdPrintInline // ??
	CmdUse
	CmdClose
	CmdList
	CmdDisplay
	CmdGo
	CmdSkip
	CmdLocate
	CmdContinue
	CmdAppendBlank
	CmdDelete
	CmdRecall
	CmdPack
	CmdZap
	CmdReplace
	CmdStore
	CmdCreate
	CmdIndex
	CmdReindex
	CmdSeek
	CmdFind
	CmdSet
	CmdSelect
	CmdClear
	CmdQuit
	CmdCancel
	CmdReturn
	CmdPublic
	CmdPrivate
	CmdLocal
	CmdRelease
	CmdDeclare
	CmdIf
	CmdDoWhile
	CmdDoCase
	CmdFor
	CmdExit
	CmdLoop
	CmdDo
	CmdProcedure
	CmdFunction
	CmdParameters
	CmdCopy
	CmdSort
	CmdCount
	CmdSum
	CmdAverage
	CmdWait
	CmdAccept
	CmdInput
	CmdAtSay
	CmdAtGet
	CmdRead
	CmdBrowse
	CmdEdit
	CmdErase
	CmdRun
	CmdHelp
	CmdUnknown
)

// CloseTarget is CLOSE's optional argument.
type CloseTarget int

const (
	CloseDatabases CloseTarget = iota
	CloseIndexes
	CloseAll
)

// ReplacePair is one `FIELD WITH expr` clause of REPLACE.
type ReplacePair struct {
	Field string
	Value *Expr
}

// CreateFieldSpec is one column of a CREATE command's inline schema,
// e.g. `NAME C 20` or `AGE N 3 0`.
type CreateFieldSpec struct {
	Name     string
	Type     byte
	Length   int
	Decimals int
}

// Command is the single AST node type for a parsed statement; the
// active payload fields depend on Kind, covering every command shape
// the parser produces, including the control-flow and aggregate
// commands.
type Command struct {
	Kind CmdKind
	Line int

	Condition *Expr // FOR
	WhileCond *Expr // WHILE
	Scope     Scope

	// ? / ??
	PrintExprs []*Expr

	// USE
	Filename  string
	Alias     string
	Exclusive bool
	Shared    bool

	// CREATE
	CreateFields []CreateFieldSpec

	// CLOSE
	CloseWhat CloseTarget

	// LIST/DISPLAY
	Fields  []*Expr
	AllFlag bool
	Off     bool

	// GO/GOTO
	RecNo *Expr
	Top   bool
	Bottom bool

	// SKIP
	SkipCount *Expr

	// REPLACE
	Replacements []ReplacePair

	// STORE / assignment
	Value *Expr
	Var   string

	// INDEX
	KeyExpr    *Expr
	Unique     bool
	Descending bool

	// SEEK/FIND
	Key *Expr

	// SET
	Option string
	OptVal *Expr
	On     bool

	// SELECT
	Area *Expr

	// PUBLIC/PRIVATE/LOCAL/RELEASE
	Names []string
	All   bool

	// DECLARE
	ArraySize *Expr

	// IF / DO WHILE / DO CASE / FOR — control-flow bodies are parsed
	// (see below) but never executed (named Non-goal).
	Cond       *Expr
	ThenBlock  []*Command
	ElseBlock  []*Command
	Cases      []*Expr
	CaseBlocks [][]*Command
	Otherwise  []*Command
	ForVar     string
	ForStart   *Expr
	ForEnd     *Expr
	ForStep    *Expr
	Body       []*Command

	// DO procedure / PROCEDURE / FUNCTION / PARAMETERS
	ProcName string
	CallArgs []*Expr
	ParamNames []string

	// COPY / SORT
	CopyFields []string

	// COUNT/SUM/AVERAGE
	Aggregates []*Expr
	TargetVars []string

	// WAIT/ACCEPT/INPUT
	Prompt *Expr
	ToVar  string

	// @ SAY/GET
	Row, Col *Expr
	SayExpr  *Expr
	GetVar   string

	// RUN
	ShellCommand string
}
