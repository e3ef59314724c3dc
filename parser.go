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

// C4: the parser. Grounded directly on original_source/input.c's
// input()/process_line()/target_type()/is_suffix() and target.c's
// addrule(); the classification order (include? then rule-vs-assignment
// via find_colon on an expanded scratch copy, then the seven
// assignment operators, then rule attachment) follows input() line for
// line, rewritten over this package's name/rule/depend/cmd/macro types
// instead of input.c's malloc'd linked lists.
package pmake

import (
	"os"
	"strings"
)

const maxIncludeDepth = 16

var specialTargetNames = map[string]bool{
	".DEFAULT":     true,
	".POSIX":       true,
	".IGNORE":      true,
	".PRECIOUS":    true,
	".SILENT":      true,
	".SUFFIXES":    true,
	".PHONY":       true,
	".NOTPARALLEL": true,
	".WAIT":        true,
	".PRAGMA":      true,
}

const (
	targetNormal = iota
	targetSpecial
	targetInference
)

// ReadString parses s as a makefile, under the given name (used only
// for diagnostics); it is how the built-in rules and the test suite
// feed the engine text that isn't on disk.
func (e *Engine) ReadString(s, filename string) error {
	return runGuarded(func() { e.input(newLineSourceString(s, filename)) })
}

// ReadFile parses the makefile at path; "-" means stdin.
func (e *Engine) ReadFile(path string) error {
	return runGuarded(func() { e.readFile(path, true) })
}

func (e *Engine) readFile(path string, required bool) {
	if path == "-" {
		e.input(newLineSourceReader(os.Stdin, "stdin"))
		return
	}
	f, err := os.Open(path)
	if err != nil {
		if required {
			e.fatalf("%s: %v", path, err)
		}
		e.warnf("%s: %v", path, err)
		return
	}
	defer f.Close()
	e.input(newLineSourceReader(f, path))
}

// input reads and dispatches every logical line of ls, recursing for
// include directives. It is the direct analogue of original_source/
// input.c's input().
func (e *Engine) input(ls *lineSource) {
	if e.includeDepth >= maxIncludeDepth {
		e.fatalf("too many includes")
	}
	e.includeDepth++
	defer func() { e.includeDepth-- }()

	savedFile, savedLine := e.curFile, e.curLine
	defer func() { e.curFile, e.curLine = savedFile, savedLine }()

	r := newReader(e, ls)
	var pendingRules []*rule

	for {
		line, isCommand, ok := r.readLogicalLine()
		if !ok {
			break
		}
		e.curFile, e.curLine = ls.file, ls.lineno

		if isCommand {
			if len(pendingRules) == 0 {
				e.fatalf("command not allowed here")
			}
			c := &cmd{text: line, file: e.curFile, lineno: e.curLine}
			for _, rl := range pendingRules {
				appendCmd(rl, c)
			}
			continue
		}

		pendingRules = e.parseLine(line)
	}
	if !r.atTopLevel() {
		e.fatalf("invalid conditional")
	}
}

func appendCmd(rl *rule, c *cmd) {
	if rl.cmd == nil {
		rl.cmd = c
		return
	}
	last := rl.cmd
	for last.next != nil {
		last = last.next
	}
	last.next = c
}

// parseLine classifies one non-command logical line and returns the
// rules (if any) that subsequent tab-indented command lines should be
// attached to.
func (e *Engine) parseLine(line string) []*rule {
	if rest, minus, isInclude := parseIncludeDirective(line, e.opt.posix); isInclude {
		e.handleInclude(rest, minus)
		return nil
	}

	// Determine whether this is a rule or an assignment by locating a
	// top-level ':' that precedes any top-level '=', then checking the
	// target names on a throwaway expanded scratch copy, matching
	// find_colon() called on a scan buffer while the *raw* line is kept
	// for command-text extraction.
	if idx := findRuleColon(line, e.opt.posix); idx >= 0 {
		if allValidTargets(e.expand(line[:idx]), e.opt) {
			return e.parseRule(line, idx)
		}
	}
	e.parseAssignment(line)
	return nil
}

// parseIncludeDirective recognizes "[-]include<blank>...".  POSIX 2017
// forbids the leading '-'.
func parseIncludeDirective(line string, mode posixMode) (rest string, minus bool, ok bool) {
	s := line
	if mode != posix2017 && strings.HasPrefix(s, "-") {
		minus = true
		s = s[1:]
	}
	if !strings.HasPrefix(s, "include") {
		return "", false, false
	}
	s = s[len("include"):]
	if s != "" && !isWhitespace(rune(s[0])) {
		return "", false, false
	}
	return s, minus, true
}

func (e *Engine) handleInclude(rest string, minus bool) {
	expanded := e.expand(rest)
	files := splitSpaces(expanded)
	if e.opt.posix == posix2017 {
		if len(files) != 1 {
			e.fatalf("one include file per line")
		}
	}
	seenAny := false
	for _, f := range files {
		if e.opt.posix != posix2017 {
			// Try to build the include file first, so generated
			// includes work (spec §4.4 step 1a).
			e.makeForInclude(f)
		}
		if _, err := os.Stat(f); err != nil && f != "-" {
			if !minus {
				e.fatalf("can't open include file '%s'", f)
			}
			continue
		}
		seenAny = true
		e.readFile(f, !minus)
		if e.opt.posix == posix2017 {
			break
		}
	}
	if e.opt.posix == posix2024 && !seenAny {
		e.fatalf("no include file")
	}
}

// makeForInclude attempts to bring an include file up to date before
// opening it. It is wired to the evaluator in eval.go; guarded so a
// makefile with no build rule for the include still proceeds to a
// plain open. A fatal diagnostic raised while building the include is
// discarded: no warning is printed for it.
func (e *Engine) makeForInclude(f string) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*fatalErr); ok {
				return
			}
			panic(r)
		}
	}()
	n := e.internOrdered(f)
	e.makeTarget(n, 1)
}

// findRuleColon returns the index of the ':' that separates targets
// from prerequisites, skipping over :=, ::= and :::= assignment
// operators and over any macro reference, or -1 if there is none.
func findRuleColon(line string, mode posixMode) int {
	i := 0
	for i < len(line) {
		if line[i] == '$' && i+1 < len(line) && (line[i+1] == '(' || line[i+1] == '{') {
			_, next, _ := scanMacroRef(line, i)
			i = next
			continue
		}
		if line[i] == ':' {
			if mode != posix2017 && i+2 < len(line) && line[i+1] == ':' && line[i+2] == ':' && i+3 < len(line) && line[i+3] == '=' {
				i += 4
				continue
			}
			if mode != posix2017 && i+1 < len(line) && line[i+1] == ':' && i+2 < len(line) && line[i+2] == '=' {
				i += 3
				continue
			}
			if mode == posixExt && i+1 < len(line) && line[i+1] == '=' {
				i += 2
				continue
			}
			return i
		}
		i++
	}
	return -1
}

func allValidTargets(s string, opt options) bool {
	for _, w := range splitSpaces(s) {
		if !isValidTargetName(w, opt.posix, opt.pragmas.has(pragmaTargetName)) {
			return false
		}
	}
	return true
}

// parseRule parses a rule line "targets : [:] prereqs [; cmd]" given the
// index of the separating colon in the raw (unexpanded) line, then
// attaches it to every named target.
func (e *Engine) parseRule(raw string, colon int) []*rule {
	targetsText := e.expand(raw[:colon])
	rest := raw[colon+1:]

	double := false
	if e.opt.posix == posixExt && strings.HasPrefix(rest, ":") {
		double = true
		rest = rest[1:]
	}

	var inlineCmdText string
	hasInlineCmd := false
	if si := strings.IndexByte(rest, ';'); si >= 0 {
		inlineCmdText = rest[si+1:]
		hasInlineCmd = true
		rest = rest[:si]
	}

	prereqText := e.expand(rest)
	deps := e.buildPrereqList(prereqText)

	var cmds *cmd
	if hasInlineCmd {
		cmds = &cmd{text: inlineCmdText, file: e.curFile, lineno: e.curLine}
	}

	targetWords := splitSpaces(targetsText)
	var expandedTargets []string
	for _, w := range targetWords {
		expandedTargets = append(expandedTargets, e.wildcardWords(w)...)
	}

	var rules []*rule
	seenInference := false
	for _, tname := range expandedTargets {
		tt := e.targetType(tname)
		np := e.internOrdered(tname)
		if tt != targetNormal {
			if tt == targetInference {
				if hasInlineCmd {
					e.fatalf("inference rules cannot have a '; command'")
				}
				seenInference = true
			}
			np.set(nSpecial)
		} else if e.firstTarget == "" {
			e.firstTarget = tname
		}
		rl := e.addRule(np, deps, cmds, double)
		if rl != nil {
			rules = append(rules, rl)
		}
	}
	if seenInference && len(expandedTargets) != 1 {
		e.fatalf("inference rules cannot have multiple targets")
	}
	return rules
}

// buildPrereqList tokenizes an already-expanded prerequisite string
// into a Depend chain, handling the ".WAIT" no-op marker (parallel
// scheduling isn't implemented, spec §1 Non-goals, so .WAIT is accepted
// and dropped), wildcard expansion, and archive-member regrouping
// "lib(m1 m2 m3)" spread across whitespace-separated tokens.
func (e *Engine) buildPrereqList(text string) *depend {
	words := splitSpaces(text)
	words = rejoinArchiveMembers(words)

	var head, tail *depend
	for _, w := range words {
		if e.opt.posix != posix2017 && w == ".WAIT" {
			continue
		}
		for _, expanded := range e.wildcardWords(w) {
			np := e.internOrdered(expanded)
			d := &depend{name: np}
			if head == nil {
				head = d
			} else {
				tail.next = d
			}
			tail = d
		}
	}
	return head
}

// wildcardWords expands glob metacharacters in w (outside POSIX mode),
// per spec §4.4's wildcard-expansion rule.
func (e *Engine) wildcardWords(w string) []string {
	if e.opt.posix != posixExt {
		return []string{w}
	}
	return wildcardExpand(w)
}

// rejoinArchiveMembers turns the token sequence produced by splitting
// "lib(m1 m2 m3)" on whitespace back into "lib(m1)" "lib(m2)" "lib(m3)",
// per spec §4.4's "Archive prerequisites ... spread across tokens are
// rejoined" rule and original_source/input.c's lib-tracking loop.
func rejoinArchiveMembers(words []string) []string {
	var out []string
	var lib string
	for _, w := range words {
		if lib == "" {
			if i := strings.IndexByte(w, '('); i >= 0 && !strings.HasSuffix(w, ")") {
				lib = w[:i]
				if i+1 < len(w) {
					out = append(out, lib+"("+w[i+1:]+")")
				}
				continue
			}
			out = append(out, w)
			continue
		}
		if strings.HasSuffix(w, ")") {
			if w != ")" {
				out = append(out, lib+"("+w)
			}
			lib = ""
			continue
		}
		out = append(out, lib+"("+w+")")
	}
	return out
}

// targetType classifies a name per spec §4.4's SPECIAL/INFERENCE/NORMAL
// rule, the Go analogue of original_source/input.c's target_type().
func (e *Engine) targetType(s string) int {
	if !strings.HasPrefix(s, ".") {
		return targetNormal
	}
	if specialTargetNames[s] {
		return targetSpecial
	}
	sfx := suffixOf(s)
	if !e.isKnownSuffix(sfx) {
		return targetNormal
	}
	if s == sfx {
		return targetInference
	}
	if e.isKnownSuffix(s[:len(s)-len(sfx)]) {
		return targetInference
	}
	return targetNormal
}

func suffixOf(s string) string {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return ""
	}
	return s[i:]
}

// isKnownSuffix reports whether s is listed as a .SUFFIXES prerequisite.
func (e *Engine) isKnownSuffix(s string) bool {
	np := e.names.find(".SUFFIXES")
	if np == nil {
		return false
	}
	for rl := np.rule; rl != nil; rl = rl.next {
		for d := rl.dep; d != nil; d = d.next {
			if d.name.s == s {
				return true
			}
		}
	}
	return false
}

// addRule attaches one rule (deps, cmds, double) to np, implementing
// original_source/target.c's addrule(): single/double-colon consistency
// checking, the ".SUFFIXES with no deps/cmds clears the list" rule, and
// "redefining a special target's commands replaces them" rule.
func (e *Engine) addRule(np *name, deps *depend, cmds *cmd, double bool) *rule {
	if e.opt.posix == posixExt && np.has(nTarget) {
		if np.has(nDouble) != double {
			e.fatalf("inconsistent rules for target %s", np.s)
		}
	}

	if np.has(nSpecial) && deps == nil && cmds == nil {
		if np.s == ".PHONY" {
			return nil
		}
		np.rule = nil
		np.lastRule = nil
		if np.s == ".SUFFIXES" {
			e.defaultSuffixes = nil
		}
		e.applySpecialTarget(np, nil)
		return nil
	}

	if cmds != nil && !np.has(nDouble) && firstCmds(np) != nil {
		if np.has(nSpecial) && deps == nil {
			np.rule = nil
			np.lastRule = nil
		} else {
			e.fatalf("commands defined twice for target %s", np.s)
		}
	}

	rl := &rule{dep: deps, cmd: cmds, double: double}
	if np.lastRule == nil {
		np.rule = rl
	} else {
		np.lastRule.next = rl
	}
	np.lastRule = rl

	np.set(nTarget)
	if double {
		np.set(nDouble)
	}

	e.applySpecialTarget(np, deps)
	return rl
}

func firstCmds(np *name) *cmd {
	for rl := np.rule; rl != nil; rl = rl.next {
		if rl.cmd != nil {
			return rl.cmd
		}
	}
	return nil
}

// applySpecialTarget implements the side effects of the SPECIAL targets
// named in spec §4.4 step 5 (.PHONY flags its prerequisites; .PRAGMA
// interprets its prerequisites as pragma names; .PRECIOUS/.SILENT/
// .IGNORE flag every prerequisite, or (with no prerequisites) become a
// global default the way original_source/main.c's post-parse scan
// treats a bare ".SILENT:" line).
func (e *Engine) applySpecialTarget(np *name, deps *depend) {
	switch np.s {
	case ".PHONY":
		for d := deps; d != nil; d = d.next {
			d.name.set(nPhony)
		}
	case ".PRECIOUS":
		if deps == nil {
			return
		}
		for d := deps; d != nil; d = d.next {
			d.name.set(nPrecious)
		}
	case ".SILENT":
		if deps == nil {
			e.opt.silent = true
			return
		}
		for d := deps; d != nil; d = d.next {
			d.name.set(nSilent)
		}
	case ".IGNORE":
		if deps == nil {
			e.opt.ignoreErrors = true
			return
		}
		for d := deps; d != nil; d = d.next {
			d.name.set(nIgnore)
		}
	case ".SUFFIXES":
		var sfx []string
		for d := deps; d != nil; d = d.next {
			sfx = append(sfx, d.name.s)
		}
		e.defaultSuffixes = append(e.defaultSuffixes, sfx...)
	case ".PRAGMA":
		for d := deps; d != nil; d = d.next {
			p, ok := parsePragma(d.name.s)
			if !ok {
				e.fatalf("invalid pragma '%s'", d.name.s)
			}
			e.opt.pragmas |= p
		}
	case ".DEFAULT":
		// Consulted directly by the build evaluator (eval.go); no
		// side effect needed here beyond the rule already attached.
	}
}

// parseAssignment parses a macro-assignment line, the seven operator
// forms from spec §4.4 step 3, grounded on original_source/input.c's
// operator-detection switch (the character(s) preceding '=').
func (e *Engine) parseAssignment(line string) {
	eq := findTopLevelByte(line, '=')
	if eq < 0 {
		e.fatalf("expected separator")
	}

	op := byte('=')
	lhsEnd := eq
	switch {
	case e.opt.posix != posix2017 && eq >= 3 && line[eq-1] == ':' && line[eq-2] == ':' && line[eq-3] == ':':
		op = 'B' // BSD :::=
		lhsEnd = eq - 3
	case e.opt.posix != posix2017 && eq >= 2 && line[eq-1] == ':' && line[eq-2] == ':':
		op = ':' // POSIX 2024 ::=
		lhsEnd = eq - 2
	case e.opt.posix == posixExt && eq >= 1 && line[eq-1] == ':':
		op = ':' // GNU :=
		lhsEnd = eq - 1
	case e.opt.posix != posix2017 && eq >= 1 && (line[eq-1] == '+' || line[eq-1] == '?' || line[eq-1] == '!'):
		op = line[eq-1]
		lhsEnd = eq - 1
	}

	lhsRaw := line[:lhsEnd]
	rhsRaw := line[eq+1:]
	rhsRaw = trimLeftSpace(rhsRaw)

	lhsExpanded := e.expand(lhsRaw)
	fields := splitSpaces(lhsExpanded)
	if len(fields) != 1 {
		e.fatalf("invalid macro assignment")
	}
	lhs := fields[0]
	if !isValidMacroName(lhs, e.opt.pragmas.has(pragmaMacroName)) {
		e.fatalf("invalid macro name '%s'", lhs)
	}

	// original_source/input.c:1102: a makefile assignment line is level
	// 3 by default (equal to the imported environment, so a later
	// makefile line overwrites it per spec.md's Testable Property #6),
	// or level 4 under -e (weaker than the environment's fixed level 3,
	// so the environment binding wins and the assignment is a no-op).
	level := levelEnv
	if e.opt.envOverride {
		level = levelMakefile
	}

	switch op {
	case ':':
		value := e.expand(rhsRaw)
		e.macs.set(lhs, value, level, true)
	case 'B':
		value := e.expander().expand(rhsRaw, true)
		e.macs.set(lhs, value, level, true)
	case '?':
		e.macs.setIfUnset(lhs, rhsRaw, level, false)
	case '+':
		mv := e.macs.lookup(lhs)
		rhs := rhsRaw
		if mv != nil && mv.immediate {
			rhs = e.expand(rhsRaw)
		}
		e.macs.appendValue(lhs, rhs, level)
	case '!':
		out := e.runShellCapture(e.expand(rhsRaw))
		e.macs.set(lhs, out, level, false)
	default:
		e.macs.set(lhs, rhsRaw, level, false)
	}
}

// runShellCapture implements the "!=" shell-capture assignment (spec
// §4.4): run cmdText through the system shell, trim one trailing
// newline, fold interior newlines to spaces, and (POSIX 2024) strip
// leading whitespace from the result.
func (e *Engine) runShellCapture(cmdText string) string {
	out, err := e.runShell(cmdText)
	if err != nil {
		e.fatalf("couldn't execute '%s': %v", cmdText, err)
	}
	if e.opt.posix == posix2024 {
		out = trimLeftSpace(out)
	}
	return out
}
