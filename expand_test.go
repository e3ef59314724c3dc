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

package pmake

import "testing"

func newTestExpander(vars map[string]string) *expander {
	m := newMacros()
	for k, v := range vars {
		m.set(k, v, levelMakefile, false)
	}
	return newExpander(m, false, location{})
}

func TestExpandPlain(t *testing.T) {
	e := newTestExpander(map[string]string{"X": "hello"})
	if got := e.expand("$(X) world", false); got != "hello world" {
		t.Errorf("expand=%q, want %q", got, "hello world")
	}
}

func TestExpandSingleChar(t *testing.T) {
	e := newTestExpander(map[string]string{"X": "hi"})
	if got := e.expand("$X!", false); got != "hi!" {
		t.Errorf("expand=%q, want %q", got, "hi!")
	}
}

func TestExpandSuffixReplacement(t *testing.T) {
	e := newTestExpander(map[string]string{"X": "fa ba a"})
	got := e.expand("$(X:a=b)", false)
	if got != "fb bb b" {
		t.Errorf("suffix replace=%q, want %q", got, "fb bb b")
	}
}

func TestExpandPatternSubstitution(t *testing.T) {
	e := newTestExpander(map[string]string{"X": "px1s px2s y"})
	got := e.expand("$(X:p%s=q%t)", false)
	if got != "qx1t qx2t y" {
		t.Errorf("pattern subst=%q, want %q", got, "qx1t qx2t y")
	}
}

func TestExpandDollarDollar(t *testing.T) {
	e := newTestExpander(nil)
	if got := e.expand("a$$b", false); got != "a$b" {
		t.Errorf("$$=%q, want %q", got, "a$b")
	}
	if got := e.expand("a$$b", true); got != "a$$b" {
		t.Errorf("$$ (except)=%q, want %q", got, "a$$b")
	}
}

func TestExpandRecursiveMacroError(t *testing.T) {
	m := newMacros()
	m.set("X", "$(X)", levelMakefile, false)
	e := newExpander(m, false, location{})
	err := runGuarded(func() {
		e.expand("$(X)", false)
	})
	if err == nil {
		t.Fatal("expected recursive macro error")
	}
}

func TestExpandDirFileModifier(t *testing.T) {
	m := newMacros()
	m.set("@", "a/b/c.o", levelInternal, false)
	e := newExpander(m, false, location{})
	if got := e.expand("$(@D)", false); got != "a/b" {
		t.Errorf("@D=%q, want a/b", got)
	}
	if got := e.expand("$(@F)", false); got != "c.o" {
		t.Errorf("@F=%q, want c.o", got)
	}
}

func TestExpandUnsetMacroIsEmpty(t *testing.T) {
	e := newTestExpander(nil)
	if got := e.expand("[$(NOPE)]", false); got != "[]" {
		t.Errorf("unset=%q, want []", got)
	}
}

// TestExpandPatternSubstitutionLiteralReplacement covers spec §4.2 form
// 3 when find contains '%' but repl does not: the whole matched word is
// replaced by the literal repl, not left untouched (a prior bug gated
// pattern mode on '%' appearing in *both* find and repl, so this case
// fell through to a literal suffix trim that never matched and produced
// "src/a.cbuild.o" instead of "build.o").
func TestExpandPatternSubstitutionLiteralReplacement(t *testing.T) {
	e := newTestExpander(map[string]string{"OBJS": "src/a.c"})
	got := e.expand("$(OBJS:src/%.c=build.o)", false)
	if got != "build.o" {
		t.Errorf("pattern subst with %%-free repl=%q, want %q", got, "build.o")
	}
}
