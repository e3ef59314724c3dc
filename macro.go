// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// C1 (macro half): the macro symbol table with its level-precedence
// rule. Grounded on the teacher's var.go (the Vars map plus an Origin-
// precedence table is the same idea as spec's int-keyed Level table)
// and, for the exact precedence direction, on original_source/macro.c's
// setmacro(): "if (level > mp->m_level) return" — a *numerically
// higher* level is *weaker*, so a new assignment only takes effect when
// its level is less than or equal to the existing binding's level. That
// resolves spec.md §3's ambiguous prose ("a higher-level assignment
// overrides only a lower- or equal-level binding") in favor of the
// original's actual behavior; see DESIGN.md's Open Questions.
package pmake

import "sync"

// macroLevel is the assignment-precedence tier from spec §3's table.
// Lower numeric value beats higher: 0 is strongest, 4 (makefile) is
// weakest. The environment is always imported at the fixed level 3;
// what -e changes is the level a *makefile* assignment line is given
// when it's parsed (original_source/input.c:1102 computes this per
// line as "(useenv || fd==NULL) ? 4 : 3" rather than moving the
// environment itself), so that level, not this table, is where -e's
// effect lives. See parser.go's parseAssignment.
type macroLevel int

const (
	levelInternal  macroLevel = 0
	levelCommand   macroLevel = 1
	levelMakeflags macroLevel = 2
	levelEnv       macroLevel = 3
	levelMakefile  macroLevel = 4
)

// macroVar is one macro binding (spec's Macro). immediate records
// whether the value was expanded at assignment time (:= / ::= / :::=);
// expanding guards against self-referential expansion the way
// original_source/input.c's m_flag does.
type macroVar struct {
	name      string
	value     string
	level     macroLevel
	immediate bool
	expanding bool
}

// macros is the macro hash table (spec's symbol table for macros),
// the analogue of the teacher's Vars map but keyed on numeric level
// instead of a string Origin.
type macros struct {
	mu   sync.Mutex
	vars map[string]*macroVar
	// order preserves first-definition order for the -p dump, matching
	// print_details()'s top-to-bottom walk of the macro list in
	// original_source/check.c.
	order []string
}

func newMacros() *macros {
	return &macros{vars: make(map[string]*macroVar)}
}

// lookup returns the current binding for name, or nil if unset.
func (m *macros) lookup(name string) *macroVar {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vars[name]
}

// set implements set_macro's level-precedence rule: the assignment only
// takes effect if level is at least as strong (numerically <=) as any
// existing binding's level. A nil value stores the empty string, per
// spec §4.1.
func (m *macros) set(name, value string, level macroLevel, immediate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mv, ok := m.vars[name]; ok {
		if level > mv.level {
			return
		}
		mv.value = value
		mv.level = level
		mv.immediate = immediate
		return
	}
	m.vars[name] = &macroVar{name: name, value: value, level: level, immediate: immediate}
	m.order = append(m.order, name)
}

// setIfUnset implements ?=: assign only if name has no binding at any
// level yet.
func (m *macros) setIfUnset(name, value string, level macroLevel, immediate bool) {
	m.mu.Lock()
	_, exists := m.vars[name]
	m.mu.Unlock()
	if exists {
		return
	}
	m.set(name, value, level, immediate)
}

// appendValue implements +=: append " "+toAppend to the existing binding
// (or behave like a plain assignment if name is unset). toAppend is
// stored as given; when the existing binding is immediate, the caller
// (parseAssignment) expands it first, matching GNU/POSIX 2024 +=
// semantics for := bindings.
func (m *macros) appendValue(name, toAppend string, level macroLevel) {
	m.mu.Lock()
	mv, ok := m.vars[name]
	m.mu.Unlock()
	if !ok {
		m.set(name, toAppend, level, false)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if level > mv.level {
		return
	}
	if mv.value == "" {
		mv.value = toAppend
	} else {
		mv.value = mv.value + " " + toAppend
	}
	mv.level = level
}

// orderedNames returns macro names in first-definition order, for -p.
func (m *macros) orderedNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := make([]string, len(m.order))
	copy(r, m.order)
	return r
}
