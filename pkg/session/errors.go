package session

import "github.com/mkfoss/xbase3/pkg/engine"

// langErrKind maps lang's evaluator error taxonomy onto engine.Kind so
// the dispatcher only ever hands the caller one error type end to end.
var langErrKind = map[string]engine.Kind{
	"Syntax":            engine.KindSyntax,
	"TypeMismatch":      engine.KindTypeMismatch,
	"UndefinedVariable": engine.KindUndefinedVariable,
	"UndefinedFunction": engine.KindUndefinedFunction,
	"DivisionByZero":    engine.KindDivisionByZero,
}

func mapEngineKind(s string) engine.Kind {
	if k, ok := langErrKind[s]; ok {
		return k
	}
	return engine.KindInternal
}
