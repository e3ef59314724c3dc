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

// Environment import, MAKEFLAGS encode/decode, and the SHELL/MAKE/CURDIR
// ambient macros (spec §6 "Environment"; SPEC_FULL.md's Supplemented
// Features). Grounded on original_source/main.c's expand_makeflags()/
// process_options()/process_macros()/update_makeflags(), adapted to this
// package's options/macros types instead of a global uint32_t bitmask.
package pmake

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// optLetters is the bundled single-letter option alphabet recognized in
// a MAKEFLAGS value with no leading '-' (original_source/make.h's
// OPTSTR1, restricted to the flags that are pure booleans).
const optLetters = "eiknqrsSt"

// LoadDotEnv preloads a ".env" file into the process environment if one
// exists in the current directory, ahead of environment-macro import.
// Absence is not an error — this is a convenience extension, not a
// required file (SPEC_FULL.md Ambient Stack).
func (e *Engine) LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		e.warnf(".env: %v", err)
	}
}

// ImportEnvironment binds every process environment variable as a
// fixed level-3 macro, skipping MAKEFLAGS and SHELL, which are handled
// separately — original_source/main.c's process_macros(argv, 3)
// equivalent over os.Environ() instead of a generated argv. The -e
// flag does not change this level; it instead weakens the level given
// to makefile assignment lines (see parser.go's parseAssignment), per
// original_source/input.c:1102.
func (e *Engine) ImportEnvironment() {
	for _, kv := range os.Environ() {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			continue
		}
		name, value := kv[:i], kv[i+1:]
		if name == "MAKEFLAGS" || name == "SHELL" {
			continue
		}
		e.macs.set(name, value, levelEnv, false)
	}
}

// DecodeMakeflags parses the MAKEFLAGS environment variable (BSD-style
// bundled option letters, or a blank-separated list of "-x"/"NAME=value"
// tokens) and applies it: booleans into e.opt, NAME=value macros at
// level 2 — original_source/main.c's expand_makeflags()+
// process_options(from_env=true)+process_macros(argv, 2).
func (e *Engine) DecodeMakeflags() {
	raw, ok := os.LookupEnv("MAKEFLAGS")
	if !ok {
		return
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}

	var tokens []string
	if raw[0] != '-' && !strings.ContainsRune(raw, '=') {
		for _, c := range raw {
			if !strings.ContainsRune(optLetters, c) {
				e.fatalf("invalid MAKEFLAGS")
			}
		}
		tokens = []string{"-" + raw}
	} else {
		tokens = splitUnescapedBlanks(raw)
	}

	for _, tok := range tokens {
		if i := strings.IndexByte(tok, '='); i >= 0 {
			e.macs.set(tok[:i], tok[i+1:], levelMakeflags, false)
			continue
		}
		if strings.HasPrefix(tok, "-") {
			e.ApplyOptionLetters(tok[1:], true)
		}
	}
}

func splitUnescapedBlanks(s string) []string {
	var out []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			cur.WriteByte(s[i+1])
			i++
			continue
		}
		if c == ' ' || c == '\t' {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteByte(c)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// ApplyOptionLetters sets e.opt's booleans from a run of bundled short
// option letters ("-ik" style), shared by MAKEFLAGS decoding and
// cmd/pmake's command-line parsing — original_source/main.c's
// process_options(), whose "from_env" parameter likewise suppresses 'p'
// (and, there, 'f') when the letters came from MAKEFLAGS rather than
// argv.
func (e *Engine) ApplyOptionLetters(letters string, fromEnv bool) {
	for _, c := range letters {
		switch c {
		case 'e':
			e.opt.envOverride = true
		case 'i':
			e.opt.ignoreErrors = true
		case 'k':
			e.opt.keepGoing = true
		case 'n':
			e.opt.dryRun = true
		case 'p':
			if !fromEnv {
				e.opt.printDetails = true
			}
		case 'q':
			e.opt.question = true
		case 'r':
			e.opt.noBuiltinRules = true
		case 's':
			e.opt.silent = true
		case 'S':
			// -k/-S are mutually exclusive; last one given wins.
			e.opt.keepGoing = false
		case 't':
			e.opt.touch = true
		default:
			if fromEnv {
				e.fatalf("invalid MAKEFLAGS")
			} else {
				e.fatalf("invalid option -- '%c'", c)
			}
		}
	}
}

// PrintDetailsRequested reports whether -p was given, the signal
// cmd/pmake uses to call DumpDetails after the makefiles are read.
func (e *Engine) PrintDetailsRequested() bool {
	return e.opt.printDetails
}

// QuestionMode reports whether -q was given, the signal cmd/pmake uses
// to map a failed build to exit status 1 instead of 2 (spec §6).
func (e *Engine) QuestionMode() bool {
	return e.opt.question
}

// SetCommandMacro binds a level-1 (command line) macro, original_source/
// main.c's process_macros(argv, 1) applied to one NAME=value operand.
func (e *Engine) SetCommandMacro(name, value string) {
	e.macs.set(name, value, levelCommand, false)
}

// ApplyMakeflags rebuilds MAKEFLAGS (see EncodeMakeflags) and publishes
// it as both an internal macro and a process environment variable, so a
// recursive $(MAKE) submake inherits the current option/macro state —
// original_source/main.c's update_makeflags().
func (e *Engine) ApplyMakeflags() {
	flags := e.EncodeMakeflags()
	e.macs.set("MAKEFLAGS", flags, levelInternal, false)
	if flags != "" {
		os.Setenv("MAKEFLAGS", flags)
	}
}

// EnableStrictPosix implements --posix / PDPMAKE_POSIXLY_CORRECT: strict
// POSIX 2017 behavior, or POSIX 2024 if the posix_202x pragma is already
// (or later becomes, see EnablePragma) in effect.
func (e *Engine) EnableStrictPosix() {
	if e.opt.pragmas.has(pragmaPosix202x) {
		e.opt.posix = posix2024
		return
	}
	e.opt.posix = posix2017
}

// EnablePragma implements -x name / a .PRAGMA prerequisite.
func (e *Engine) EnablePragma(name string) error {
	return runGuarded(func() {
		p, ok := parsePragma(name)
		if !ok {
			e.fatalf("invalid pragma '%s'", name)
		}
		e.opt.pragmas |= p
		if p == pragmaPosix202x && e.opt.posix == posix2017 {
			e.opt.posix = posix2024
		}
	})
}

// SetJobs records the -j argument. Parallel scheduling is a documented
// non-goal (spec §1), so the value is only stored: it does not change
// how targets are built and is not written back into MAKEFLAGS.
func (e *Engine) SetJobs(n int) {
	e.opt.jobs = n
}

// SetChdir records the directory -C changed into; the value is only
// stored (it appears in no diagnostic and not in MAKEFLAGS). The chdir
// itself happens in cmd/pmake before any makefile is read.
func (e *Engine) SetChdir(dir string) {
	e.opt.chdir = dir
}

// RegisterMakefile records one -f argument in read order, so repeated
// -f flags are honored (spec §6 "-f file ... repeatable").
func (e *Engine) RegisterMakefile(path string) {
	e.opt.makefiles = append(e.opt.makefiles, path)
}

// Makefiles returns the -f arguments seen so far, in order.
func (e *Engine) Makefiles() []string {
	return e.opt.makefiles
}

// EncodeMakeflags rebuilds the MAKEFLAGS value from the surviving option
// bits plus every level-1/level-2 macro (excluding MAKEFLAGS and SHELL),
// original_source/main.c's update_makeflags(). Call it before invoking a
// recursive $(MAKE) submake or before process exit.
func (e *Engine) EncodeMakeflags() string {
	var letters strings.Builder
	for _, pair := range []struct {
		set bool
		ch  byte
	}{
		{e.opt.envOverride, 'e'},
		{e.opt.ignoreErrors, 'i'},
		{e.opt.keepGoing, 'k'},
		{e.opt.dryRun, 'n'},
		{e.opt.question, 'q'},
		{e.opt.noBuiltinRules, 'r'},
		{e.opt.silent, 's'},
		{e.opt.touch, 't'},
	} {
		if pair.set {
			letters.WriteByte(pair.ch)
		}
	}

	var parts []string
	if letters.Len() > 0 {
		parts = append(parts, "-"+letters.String())
	}
	for _, name := range e.macs.orderedNames() {
		if name == "MAKEFLAGS" || name == "SHELL" {
			continue
		}
		mv := e.macs.lookup(name)
		if mv == nil || (mv.level != levelCommand && mv.level != levelMakeflags) {
			continue
		}
		parts = append(parts, name+"="+escapeMakeflagsValue(mv.value))
	}
	return strings.Join(parts, " ")
}

func escapeMakeflagsValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == ' ' || c == '\t' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// SetupAmbientMacros binds the macros every pmake process carries
// regardless of any makefile content: "$" (the literal-dollar escape),
// SHELL (force-assigned, see SPEC_FULL.md), MAKE (absolute path to this
// binary, for recursive $(MAKE) invocations) and, under POSIX 2024,
// CURDIR (the working directory after any -C chdir).
func (e *Engine) SetupAmbientMacros() {
	e.macs.set("$", "$", levelInternal, false)
	e.macs.set("SHELL", "/bin/sh", levelMakefile, false)

	if exe, err := os.Executable(); err == nil {
		if abs, err := filepath.Abs(exe); err == nil {
			e.makePath = abs
			e.macs.set("MAKE", abs, levelMakefile, false)
		}
	}

	if e.opt.posix == posix2024 {
		if wd, err := os.Getwd(); err == nil {
			e.macs.set("CURDIR", wd, levelMakefile, false)
		}
	}
}
