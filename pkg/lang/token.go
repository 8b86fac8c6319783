// Package lang implements the dBASE command/expression language: a
// lexer, a Pratt-style expression parser with one recursive-descent
// function per command keyword, the resulting AST, and a tree-walking
// evaluator over a dynamic value union.
//
// The token-kind/keyword-table shape follows the grain of the SQL
// tokenizers in this module's broader reference set (yacc-generated
// lexers that split a keyword table from a hand-rolled scanner loop);
// the command surface and literal grammar are this system's own.
package lang

import "strings"

// Kind identifies a lexical token.
type Kind int

const (
	EOF Kind = iota
	Newline

	Number
	String
	DateLiteral
	Ident

	// operators and punctuation
	Plus
	Minus
	Star
	Slash
	Percent
	Caret
	Dollar
	Eq
	EqEq
	NotEq
	Hash
	Lt
	LtEq
	Gt
	GtEq
	Assign // :=
	Comma
	Dot
	Colon
	Semicolon
	LParen
	RParen
	LBracket
	RBracket
	Amp
	At
	Question
	QuestionQuestion
	Arrow // ->

	// dotted keywords
	DotAnd
	DotOr
	DotNot
	DotTrue
	DotFalse

	// command keywords
	KwUse
	KwClose
	KwList
	KwDisplay
	KwGo
	KwGoto
	KwTop
	KwBottom
	KwSkip
	KwLocate
	KwContinue
	KwAppend
	KwBlank
	KwFrom
	KwDelete
	KwRecall
	KwPack
	KwZap
	KwReplace
	KwWith
	KwStore
	KwTo
	KwCreate
	KwIndex
	KwOn
	KwUnique
	KwDescending
	KwReindex
	KwSeek
	KwFind
	KwSet
	KwSelect
	KwClear
	KwAll
	KwMemory
	KwGets
	KwQuit
	KwCancel
	KwReturn
	KwPublic
	KwPrivate
	KwLocal
	KwRelease
	KwDeclare
	KwIf
	KwEndif
	KwElse
	KwDoWhile
	KwEnddo
	KwDoCase
	KwCase
	KwOtherwise
	KwEndcase
	KwFor
	KwNext
	KwRecord
	KwRest
	KwStep
	KwExit
	KwLoop
	KwDo
	KwProcedure
	KwFunction
	KwParameters
	KwCopy
	KwFields
	KwSort
	KwCount
	KwSum
	KwAverage
	KwWait
	KwAccept
	KwInput
	KwRead
	KwBrowse
	KwEdit
	KwErase
	KwRun
	KwHelp
	KwAlias
	KwExclusive
	KwShared
	KwWhile
	KwDatabases
	KwIndexes
	KwOrder
	KwDeleted
	KwExact
	KwPath
	KwNote
	KwOff
	KwSay
	KwGet
)

var keywords = map[string]Kind{
	"USE": KwUse, "CLOSE": KwClose, "LIST": KwList, "DISPLAY": KwDisplay,
	"GO": KwGo, "GOTO": KwGoto, "TOP": KwTop, "BOTTOM": KwBottom,
	"SKIP": KwSkip, "LOCATE": KwLocate, "CONTINUE": KwContinue,
	"APPEND": KwAppend, "BLANK": KwBlank, "FROM": KwFrom,
	"DELETE": KwDelete, "RECALL": KwRecall, "PACK": KwPack, "ZAP": KwZap,
	"REPLACE": KwReplace, "WITH": KwWith, "STORE": KwStore, "TO": KwTo,
	"CREATE": KwCreate, "INDEX": KwIndex, "ON": KwOn, "UNIQUE": KwUnique,
	"DESCENDING": KwDescending, "REINDEX": KwReindex, "SEEK": KwSeek,
	"FIND": KwFind, "SET": KwSet, "SELECT": KwSelect, "CLEAR": KwClear,
	"ALL": KwAll, "MEMORY": KwMemory, "GETS": KwGets, "QUIT": KwQuit,
	"CANCEL": KwCancel, "RETURN": KwReturn, "PUBLIC": KwPublic,
	"PRIVATE": KwPrivate, "LOCAL": KwLocal, "RELEASE": KwRelease,
	"DECLARE": KwDeclare, "IF": KwIf, "ENDIF": KwEndif, "ELSE": KwElse,
	"ENDDO": KwEnddo, "CASE": KwCase, "OTHERWISE": KwOtherwise,
	"ENDCASE": KwEndcase, "FOR": KwFor, "NEXT": KwNext, "RECORD": KwRecord,
	"REST": KwRest, "STEP": KwStep, "EXIT": KwExit, "LOOP": KwLoop,
	"DO": KwDo, "PROCEDURE": KwProcedure, "FUNCTION": KwFunction,
	"PARAMETERS": KwParameters, "COPY": KwCopy, "FIELDS": KwFields,
	"SORT": KwSort, "COUNT": KwCount, "SUM": KwSum, "AVERAGE": KwAverage,
	"WAIT": KwWait, "ACCEPT": KwAccept, "INPUT": KwInput, "READ": KwRead,
	"BROWSE": KwBrowse, "EDIT": KwEdit, "ERASE": KwErase, "RUN": KwRun,
	"HELP": KwHelp, "ALIAS": KwAlias, "EXCLUSIVE": KwExclusive,
	"SHARED": KwShared, "WHILE": KwWhile, "DATABASES": KwDatabases,
	"INDEXES": KwIndexes, "ORDER": KwOrder, "DELETED": KwDeleted,
	"EXACT": KwExact, "PATH": KwPath, "NOTE": KwNote, "OFF": KwOff,
	"SAY": KwSay, "GET": KwGet,
}

func lookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[strings.ToUpper(ident)]
	return k, ok
}

// Token is one lexical unit: its kind, the verbatim source text
// (reused as identifier/string contents), a parsed numeric value when
// Kind == Number, and its source position for diagnostics.
type Token struct {
	Kind   Kind
	Text   string
	Number float64
	Line   int
	Col    int
}
