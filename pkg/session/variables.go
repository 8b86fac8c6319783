package session

import (
	"strings"

	"github.com/mkfoss/xbase3/pkg/lang"
)

// scopeFrame holds the PRIVATE/LOCAL variables visible at one level of
// the call stack. The stack lives inside the session rather than as a
// process-wide global, so two sessions never share variables.
type scopeFrame struct {
	vars map[string]lang.Value
}

// VariableStore is a session's memory-variable table: a PUBLIC map
// plus a stack of PRIVATE/LOCAL scope frames, implementing
// lang.VarSource for the evaluator.
type VariableStore struct {
	public map[string]lang.Value
	frames []*scopeFrame
}

// NewVariableStore returns a store with one base scope frame, as a
// fresh session always has at least one active scope level.
func NewVariableStore() *VariableStore {
	return &VariableStore{
		public: make(map[string]lang.Value),
		frames: []*scopeFrame{{vars: make(map[string]lang.Value)}},
	}
}

// PushScope enters a new PRIVATE/LOCAL level (a procedure/function call).
func (s *VariableStore) PushScope() {
	s.frames = append(s.frames, &scopeFrame{vars: make(map[string]lang.Value)})
}

// PopScope leaves the innermost scope level, discarding its variables.
// The base frame is never popped.
func (s *VariableStore) PopScope() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *VariableStore) top() *scopeFrame {
	return s.frames[len(s.frames)-1]
}

// GetVar implements lang.VarSource: innermost scope frame first, then
// PUBLIC.
func (s *VariableStore) GetVar(name string) (lang.Value, bool) {
	name = strings.ToUpper(name)
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i].vars[name]; ok {
			return v, true
		}
	}
	if v, ok := s.public[name]; ok {
		return v, true
	}
	return lang.Value{}, false
}

// Store implements STORE/assignment: if the name already exists
// anywhere visible, overwrite it in place; otherwise it is created as
// PRIVATE in the current scope frame, matching the reference
// implementation's default.
func (s *VariableStore) Store(name string, v lang.Value) {
	name = strings.ToUpper(name)
	for i := len(s.frames) - 1; i >= 0; i-- {
		if _, ok := s.frames[i].vars[name]; ok {
			s.frames[i].vars[name] = v
			return
		}
	}
	if _, ok := s.public[name]; ok {
		s.public[name] = v
		return
	}
	s.top().vars[name] = v
}

// DeclarePublic makes each name visible from every scope level,
// initialised to an empty string per dBASE convention.
func (s *VariableStore) DeclarePublic(names []string) {
	for _, n := range names {
		s.public[strings.ToUpper(n)] = lang.StringVal("")
	}
}

// DeclarePrivate/DeclareLocal both just (re)seed a fresh entry at the
// current scope frame; the distinction between PRIVATE (visible to
// called routines) and LOCAL (strictly this routine only) only matters
// once procedure execution exists, which is out of scope here.
func (s *VariableStore) DeclarePrivate(names []string) {
	for _, n := range names {
		s.top().vars[strings.ToUpper(n)] = lang.StringVal("")
	}
}

func (s *VariableStore) DeclareLocal(names []string) {
	s.DeclarePrivate(names)
}

// Release drops the named variables from every level they're visible
// in, including PUBLIC.
func (s *VariableStore) Release(names []string) {
	for _, n := range names {
		u := strings.ToUpper(n)
		delete(s.public, u)
		for _, f := range s.frames {
			delete(f.vars, u)
		}
	}
}

// ReleaseAll clears every variable in every scope (RELEASE ALL).
func (s *VariableStore) ReleaseAll() {
	s.public = make(map[string]lang.Value)
	for _, f := range s.frames {
		f.vars = make(map[string]lang.Value)
	}
}
