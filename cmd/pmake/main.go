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

// cmd/pmake wires pmake.Engine to the command line (spec §6). It is a
// thin wrapper the way the teacher's own cmd/kati is: flag parsing here,
// everything else delegated to the library package. Short option
// bundling ("-ik", "-C dir") isn't something stdlib flag supports, so
// the CLI walks argv by hand, grounded on original_source/main.c's
// process_options()/expand_makeflags() rather than the teacher's
// flag.BoolVar style.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rmyorston/pmake"
)

// bundledLetters are the single-character boolean options that may
// appear combined in one argv word, e.g. "-ik" == "-i -k".
const bundledLetters = "eiknpqrsSt"

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pmake [--posix] [-C dir] [-f file] [-j N] [-x pragma] [-ehiknpqrsSt] [NAME=value ...] [target ...]")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	var (
		chdir    string
		files    []string
		jobs     int
		pragmas  []string
		posix    bool
		letters  strings.Builder
		operands []string
	)

	for i := 0; i < len(argv); i++ {
		a := argv[i]

		if a == "--posix" {
			posix = true
			continue
		}
		if a == "--" {
			operands = append(operands, argv[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			operands = append(operands, a)
			continue
		}

		// "-f file", "-C dir", "-j N" and "-x pragma" may take their
		// argument attached ("-ffile") or as the next argv word.
		letterRun := a[1:]
		for len(letterRun) > 0 {
			c := letterRun[0]
			rest := letterRun[1:]
			switch c {
			case 'f', 'C', 'j', 'x':
				var arg string
				if rest != "" {
					arg = rest
				} else {
					i++
					if i >= len(argv) {
						fmt.Fprintf(os.Stderr, "pmake: option requires an argument -- '%c'\n", c)
						usage()
						return 2
					}
					arg = argv[i]
				}
				switch c {
				case 'f':
					files = append(files, arg)
				case 'C':
					chdir = arg
				case 'j':
					jobs = atoiOrZero(arg)
				case 'x':
					pragmas = append(pragmas, arg)
				}
				letterRun = ""
			default:
				if !strings.ContainsRune(bundledLetters, rune(c)) {
					fmt.Fprintf(os.Stderr, "pmake: invalid option -- '%c'\n", c)
					usage()
					return 2
				}
				letters.WriteByte(c)
				letterRun = rest
			}
		}
	}

	if chdir != "" {
		if err := os.Chdir(chdir); err != nil {
			fmt.Fprintf(os.Stderr, "pmake: %v\n", err)
			return 2
		}
	}

	e := pmake.NewEngine()
	if chdir != "" {
		e.SetChdir(chdir)
	}
	e.SetJobs(jobs)

	e.LoadDotEnv()
	e.DecodeMakeflags()
	e.ApplyOptionLetters(letters.String(), false)
	for _, p := range pragmas {
		if err := e.EnablePragma(p); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
	}
	if posix || os.Getenv("PDPMAKE_POSIXLY_CORRECT") != "" {
		e.EnableStrictPosix()
	}
	e.ImportEnvironment()
	e.SetupAmbientMacros()

	if err := e.LoadBuiltins(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	// A leading run of "NAME=value" operands are command-line macro
	// definitions (level 1); the first operand without '=' ends the run
	// and everything from there on is a target, original_source/main.c's
	// process_macros(argv, 1).
	i := 0
	for ; i < len(operands); i++ {
		eq := strings.IndexByte(operands[i], '=')
		if eq < 0 {
			break
		}
		e.SetCommandMacro(operands[i][:eq], operands[i][eq+1:])
	}
	targets := operands[i:]

	if len(files) == 0 {
		if err := readDefaultMakefile(e); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
	} else {
		for _, f := range files {
			e.RegisterMakefile(f)
			if err := e.ReadFile(f); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				return 2
			}
		}
	}

	if e.PrintDetailsRequested() {
		e.DumpDetails()
	}

	e.ApplyMakeflags()
	e.InstallSignalHandlers()

	if len(targets) == 0 {
		goal, ok := e.DefaultGoal()
		if !ok {
			fmt.Fprintln(os.Stderr, "pmake: no targets defined")
			return 2
		}
		targets = []string{goal}
	}

	failedAny := false
	for _, t := range targets {
		failed, err := e.Make(t)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		failedAny = failedAny || failed
	}

	if failedAny {
		if e.QuestionMode() {
			return 1
		}
		return 2
	}
	return 0
}

func readDefaultMakefile(e *pmake.Engine) error {
	for _, name := range []string{"makefile", "Makefile"} {
		if _, err := os.Stat(name); err == nil {
			return e.ReadFile(name)
		}
	}
	return fmt.Errorf("pmake: no makefile found")
}

func atoiOrZero(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
