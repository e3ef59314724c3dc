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

// C3: the logical-line reader/lexer. Grounded on original_source/
// input.c's getline()/readline() (backslash-newline continuation,
// CR-stripping, comment handling) plus the extension-mode conditional
// directive stack (ifdef/ifndef/else/endif), and on rules.c's getrules()
// for the built-in-rules cursor, reused here as builtinRulesText().
package pmake

import (
	"bufio"
	"io"
	"strings"
)

// condFrame is one level of the ifdef/ifndef/else/endif stack (spec
// §4.3). skip is true while the reader should discard input for this
// frame (or any enclosing frame); expectElse tracks whether an else is
// still legal; gotMatch remembers whether some branch of this if/else
// chain has already been taken, so a later "else ifdef" doesn't also
// fire.
type condFrame struct {
	skip       bool
	parentSkip bool
	expectElse bool
	gotMatch   bool
}

// maxCondDepth bounds the conditional-directive stack (spec §4.3).
const maxCondDepth = 10

// lineSource yields physical lines, CR-stripped, from a file or from an
// in-memory string (used for the built-in rules text), matching spec
// §4.3's "a file or the built-in rules generator".
type lineSource struct {
	r      *bufio.Reader
	closer io.Closer
	file   string
	lineno int
}

func newLineSourceReader(r io.Reader, file string) *lineSource {
	c, _ := r.(io.Closer)
	return &lineSource{r: bufio.NewReader(r), closer: c, file: file}
}

func newLineSourceString(s, file string) *lineSource {
	return newLineSourceReader(strings.NewReader(s), file)
}

func (ls *lineSource) close() {
	if ls.closer != nil {
		ls.closer.Close()
	}
}

// nextPhysical reads one physical line with its terminator stripped
// (both "\n" and a preceding "\r"), or reports ok=false at EOF.
func (ls *lineSource) nextPhysical() (string, bool) {
	line, err := ls.r.ReadString('\n')
	if line == "" && err != nil {
		return "", false
	}
	ls.lineno++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true
}

// endsWithContinuation reports whether s ends in an odd run of
// backslashes, i.e. the final one escapes the line terminator and the
// line continues onto the next physical line (spec §4.3).
func endsWithContinuation(s string) bool {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// reader assembles logical lines for one input (file or built-ins),
// applying backslash continuation, comment stripping and the
// conditional-directive stack. Each included file gets its own reader
// with its own condition stack, which must be empty when the file ends
// (conditionals may not span files, spec §4.3).
type reader struct {
	e    *Engine
	ls   *lineSource
	cond []condFrame // this file's own nesting, checked for emptiness by atTopLevel
}

func newReader(e *Engine, ls *lineSource) *reader {
	return &reader{e: e, ls: ls}
}

// skip reports whether the reader is currently inside a false
// conditional branch, at any nesting level.
func (r *reader) skip() bool {
	return len(r.cond) > 0 && r.cond[len(r.cond)-1].skip
}

// handleDirective processes a conditional-directive line (ifdef,
// ifndef, else, else ifdef, else ifndef, endif) and reports whether the
// line was in fact a directive.
func (r *reader) handleDirective(line string) bool {
	fields := splitSpaces(line)
	if len(fields) == 0 {
		return false
	}
	kw := fields[0]
	switch kw {
	case "ifdef", "ifndef":
		if len(r.cond) >= maxCondDepth {
			r.e.fatalf("nesting too deep")
		}
		if len(fields) != 2 {
			r.e.fatalf("invalid conditional")
		}
		parentSkip := r.skip()
		matched := r.e.macroIsDefined(fields[1])
		if kw == "ifndef" {
			matched = !matched
		}
		r.cond = append(r.cond, condFrame{
			skip:       parentSkip || !matched,
			parentSkip: parentSkip,
			expectElse: true,
			gotMatch:   matched,
		})
		return true
	case "else":
		r.handleElse(fields[1:])
		return true
	case "endif":
		if len(fields) != 1 {
			r.e.fatalf("invalid conditional")
		}
		if len(r.cond) == 0 {
			r.e.fatalf("missing conditional")
		}
		r.cond = r.cond[:len(r.cond)-1]
		return true
	}
	return false
}

func (r *reader) handleElse(rest []string) {
	if len(r.cond) == 0 {
		r.e.fatalf("missing conditional")
	}
	top := &r.cond[len(r.cond)-1]
	if !top.expectElse {
		r.e.fatalf("unexpected else")
	}
	switch {
	case len(rest) == 0:
		top.skip = top.parentSkip || top.gotMatch
		top.expectElse = false
		top.gotMatch = true
	case len(rest) == 2 && (rest[0] == "ifdef" || rest[0] == "ifndef"):
		if top.gotMatch {
			top.skip = true
			return
		}
		matched := r.e.macroIsDefined(rest[1])
		if rest[0] == "ifndef" {
			matched = !matched
		}
		top.skip = top.parentSkip || !matched
		if matched {
			top.gotMatch = true
		}
	default:
		r.e.fatalf("invalid conditional")
	}
}

// readLogicalLine returns the next logical line, with backslash-newline
// continuation joined, CR stripped, comments removed (subject to the
// command_comment pragma on command lines) and blank/pure-comment lines
// and conditional directives already consumed. isCommand reports
// whether the (first) physical line began with a tab.
func (r *reader) readLogicalLine() (text string, isCommand bool, ok bool) {
	for {
		first, more := r.ls.nextPhysical()
		if !more {
			return "", false, false
		}
		isCommand = strings.HasPrefix(first, "\t")

		raw := first
		for endsWithContinuation(raw) {
			next, more := r.ls.nextPhysical()
			if !more {
				break
			}
			raw = raw + "\n" + next
		}
		joined := string(concatline([]byte(raw)))

		if !isCommand {
			if r.handleDirective(strings.TrimSpace(joined)) {
				continue
			}
		}
		if r.skip() {
			continue
		}

		stripComment := !isCommand || r.e.opt.pragmas.has(pragmaCommandComment)
		if stripComment {
			stripped, _ := removeComment([]byte(joined))
			joined = string(stripped)
		}

		if isCommand {
			// Drop exactly one leading tab; the rest of the text
			// (including any further leading whitespace) is preserved,
			// per spec §6's EBNF ("\t" cmd).
			joined = strings.TrimPrefix(joined, "\t")
		} else {
			joined = strings.TrimSpace(joined)
		}

		if joined == "" && !isCommand {
			continue
		}
		return joined, isCommand, true
	}
}

// atTopLevel reports whether this reader's own conditional stack is
// balanced, used to enforce "conditionals may not span files" on
// return from an include (spec §4.3).
func (r *reader) atTopLevel() bool {
	return len(r.cond) == 0
}
