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

// C2: the recursive macro expander. Grounded directly on
// original_source/input.c's expand_macros()/modify_words()/skip_macro()/
// find_char() — the algorithm in spec §4.2 is a close paraphrase of
// that function — written in the teacher's style (small helpers over
// []byte/string, glog.V tracing) rather than the original's in-place
// xstrdup/xconcat3 string surgery.
package pmake

import (
	"strings"

	"github.com/golang/glog"
)

// expander holds the one piece of state expand() needs beyond the
// macro table itself: whether nested macro references inside a NAME
// are themselves expanded before lookup, which spec §4.2 says happens
// "only outside POSIX 2017 mode".
type expander struct {
	macros    *macros
	strict17  bool
	curLoc    location
}

func newExpander(m *macros, strict17 bool, loc location) *expander {
	return &expander{macros: m, strict17: strict17, curLoc: loc}
}

// expand substitutes all macro references in str and returns a new
// string, per spec §4.2. When exceptDollarDollar is set (used for the
// BSD :::= delayed-immediate form), a literal "$$" is passed through
// unchanged instead of collapsing to a single "$".
func (e *expander) expand(str string, exceptDollarDollar bool) string {
	var buf strings.Builder
	i := 0
	for i < len(str) {
		ch := str[i]
		if ch != '$' {
			buf.WriteByte(ch)
			i++
			continue
		}
		if i+1 >= len(str) {
			// Trailing lone '$': original_source/input.c's expand_macros
			// simply stops scanning (the dollar is dropped).
			break
		}
		if str[i+1] == '$' {
			if exceptDollarDollar {
				buf.WriteString("$$")
			} else {
				buf.WriteByte('$')
			}
			i += 2
			continue
		}
		refBody, next, oneChar := scanMacroRef(str, i)
		buf.WriteString(e.expandRef(refBody, oneChar))
		i = next
	}
	return buf.String()
}

// scanMacroRef returns the text between the delimiters of the macro
// reference starting at str[start] (which must be '$'), the index just
// past the reference, and whether it was the single-character $X form.
// Balance-aware: a nested "$(" inside the reference does not close it
// early, matching skip_macro()'s recursive paren matching.
func scanMacroRef(str string, start int) (body string, next int, oneChar bool) {
	i := start + 1
	open := str[i]
	if open != '(' && open != '{' {
		// $X: single-character macro name.
		return str[i : i+1], i + 1, true
	}
	close := closeParen(open)
	depth := 1
	j := i + 1
	for j < len(str) {
		switch str[j] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return str[i+1 : j], j + 1, false
			}
		}
		j++
	}
	// Unterminated: consume to end of string, matching find_char
	// returning NULL and expand_macros raising "unterminated variable".
	fatalf(location{}, "unterminated variable '%s'", str[start:])
	return "", len(str), false
}

// expandRef resolves the content of one $(...)/${...}/$X reference:
// NAME[:FIND=REPL], applying suffix/pattern substitution and the D/F
// directory-or-filename modifier for the single-letter automatic
// macros, then looks the (possibly modified) name up and recursively
// expands its value.
func (e *expander) expandRef(body string, oneChar bool) string {
	name := body
	var findPart, replPart string
	hasSubst := false

	if !oneChar {
		if ci := findTopLevelByte(name, ':'); ci >= 0 {
			hasSubst = true
			rawFind := name[ci+1:]
			name = name[:ci]
			expFind := e.expand(rawFind, false)
			if ei := findTopLevelByte(expFind, '='); ei >= 0 {
				findPart = expFind[:ei]
				replPart = expFind[ei+1:]
			} else {
				findPart = expFind
			}
		}

		if e.strict17 {
			name = stripMacroRefs(name)
		} else {
			name = e.expand(name, false)
		}
	}

	modifier := byte(0)
	if len(name) == 2 && (name[1] == 'D' || name[1] == 'F') && strings.IndexByte("@%?<*^+", name[0]) >= 0 {
		modifier = name[1]
		name = name[:1]
	}

	mv := e.macros.lookup(name)
	if mv == nil {
		glog.V(2).Infof("expand $(%s) -> <unset>", name)
		return ""
	}
	if mv.expanding {
		fatalf(e.curLoc, "recursive macro %s", name)
	}
	mv.expanding = true
	value := e.expand(mv.value, false)
	mv.expanding = false

	if hasSubst {
		value = applyWordSubst(value, findPart, replPart)
	}
	if modifier != 0 {
		value = applyWordDF(value, modifier)
	}
	glog.V(2).Infof("expand $(%s) -> %q", name, value)
	return value
}

// findTopLevelByte finds the first occurrence of c in s that is not
// inside a (possibly nested) "$(...)"/"${...}" span, the Go analogue of
// original_source/input.c's find_char()+skip_macro().
func findTopLevelByte(s string, c byte) int {
	i := 0
	for i < len(s) {
		if s[i] == '$' && i+1 < len(s) && (s[i+1] == '(' || s[i+1] == '{') {
			_, next, _ := scanMacroRef(s, i)
			i = next
			continue
		}
		if s[i] == c {
			return i
		}
		i++
	}
	return -1
}

// stripMacroRefs removes every top-level "$(...)"/"${...}"/"$X" span
// from s, leaving the literal characters around them untouched. This is
// the POSIX-2017 behavior for a macro NAME that itself contains a
// nested reference: the reference is dropped rather than expanded,
// matching expand_macros()'s skip_macro() copy loop.
func stripMacroRefs(s string) string {
	var buf strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '$' && i+1 < len(s) {
			if s[i+1] == '(' || s[i+1] == '{' {
				_, next, _ := scanMacroRef(s, i)
				i = next
				continue
			}
			i += 2
			continue
		}
		buf.WriteByte(s[i])
		i++
	}
	return buf.String()
}

// applyWordSubst implements spec §4.2's two substitution forms over
// each whitespace-separated word of value: plain suffix replacement
// ("a=b") when find has no '%', pattern substitution ("p%s=q%t")
// otherwise — selected by whether find alone contains '%', regardless
// of repl (a repl lacking '%' still means "pattern mode, but replace
// the whole matched word with repl literally", not "fall back to
// suffix mode"). Grounded on original_source/input.c's modify_words()
// and reusing this package's substRef helper (strutil.go), which
// already implements exactly this pair of rules.
func applyWordSubst(value, find, repl string) string {
	words := splitSpaces(value)
	if words == nil {
		return ""
	}
	for i, w := range words {
		words[i] = substRef(find, repl, w)
	}
	return strings.Join(words, " ")
}

// applyWordDF implements the $(@D)/$(@F) modifier: the directory part
// (everything before the last '/'; "." if none; "/" if that '/' is the
// word's first character) or the filename part (everything after the
// last '/'), per spec §4.2 and original_source/input.c's modify_words()
// 'D'/'F' branch.
func applyWordDF(value string, modifier byte) string {
	words := splitSpaces(value)
	if words == nil {
		return ""
	}
	for i, w := range words {
		idx := strings.LastIndexByte(w, '/')
		switch modifier {
		case 'D':
			switch {
			case idx < 0:
				words[i] = "."
			case idx == 0:
				words[i] = "/"
			default:
				words[i] = w[:idx]
			}
		case 'F':
			if idx >= 0 {
				words[i] = w[idx+1:]
			}
		}
	}
	return strings.Join(words, " ")
}
