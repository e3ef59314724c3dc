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

// This file implements C1: the target-name symbol table. It is grounded
// on the teacher's symtab.go (a mutex-guarded map used to intern
// strings) and on original_source/make.h's struct name / N_* flag bits
// and original_source/target.c's findname/newname/addrule.
package pmake

import (
	"strings"
	"sync"
)

// nameFlag mirrors the N_* bitset on struct name in original_source/make.h.
type nameFlag uint32

const (
	nDoing nameFlag = 1 << iota
	nDone
	nTarget
	nPrecious
	nDouble
	nSilent
	nIgnore
	nSpecial
	nMark
	nPhony
	nInference
)

func (f nameFlag) has(bit nameFlag) bool { return f&bit != 0 }

// depend is a prerequisite list node (spec's Depend). Go's GC makes the
// refcnt field from original_source/make.h unnecessary for memory safety,
// but makeTarget still needs to splice a synthesized prerequisite into a
// rule and later discard it without mutating the rule's own list, so we
// keep depend nodes cheap to build fresh rather than reuse in place.
type depend struct {
	next *depend
	name *name
}

// cmd is one command line of a rule (spec's Cmd).
type cmd struct {
	next   *cmd
	text   string
	file   string
	lineno int
}

// rule is a per-target rule record (spec's Rule): a prerequisite list
// plus a command list, with the flag telling whether it came from a
// double-colon (`::`) definition.
type rule struct {
	next    *rule
	dep     *depend
	cmd     *cmd
	double  bool
	marked  bool // not read; dyndep marks inference rules with nMark on their name
}

// name is an interned target/macro-name record (spec's Name).
type name struct {
	s        string
	rule     *rule // first-added rule; rules are kept in declaration order
	lastRule *rule
	flag     nameFlag
	mtime    modTime // 0 value means "unknown / does not exist"
}

func (n *name) has(bit nameFlag) bool { return n.flag.has(bit) }
func (n *name) set(bit nameFlag)      { n.flag |= bit }
func (n *name) clear(bit nameFlag)    { n.flag &^= bit }

// symtab interns name records by their string name, the direct analogue
// of the teacher's symtab.go string interner, specialized to hold the
// richer per-target record the evaluator needs instead of a bare string.
type symtab struct {
	mu    sync.Mutex
	names map[string]*name
}

func newSymtab() *symtab {
	return &symtab{names: make(map[string]*name)}
}

// intern returns the existing record for s, creating one if this is the
// first mention — original_source/target.c's newname().
func (t *symtab) intern(s string) *name {
	t.mu.Lock()
	defer t.mu.Unlock()
	if np, ok := t.names[s]; ok {
		return np
	}
	np := &name{s: s}
	t.names[s] = np
	return np
}

// find returns the existing record for s, or nil — findname() in
// original_source/target.c. Used by callers (e.g. the inference
// resolver) that must not fabricate a Name as a side effect of probing.
func (t *symtab) find(s string) *name {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.names[s]
}

// isValidTargetName validates a candidate target name's character set
// per spec §4.1: POSIX 2017 permits [A-Za-z0-9._], POSIX 2024 also
// permits [-/], and the target_name pragma allows anything but '='.
func isValidTargetName(s string, mode posixMode, relaxed bool) bool {
	if s == "" {
		return false
	}
	if relaxed {
		return !strings.ContainsRune(s, '=')
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.' || c == '_':
		case (c == '-' || c == '/') && mode != posix2017:
		default:
			return false
		}
	}
	return true
}

// isValidMacroName validates a macro name per the same family of rules,
// gated by the macro_name pragma instead of target_name.
func isValidMacroName(s string, relaxed bool) bool {
	if s == "" {
		return false
	}
	if relaxed {
		return !strings.ContainsRune(s, '=') && !strings.ContainsAny(s, " \t")
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.' || c == '_':
		default:
			return false
		}
	}
	return true
}
