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

// End-to-end scenarios S1 and S3-S6 from spec §8 (S2 has no test here),
// run against an in-process
// Engine the way the teacher's run_test.go drives a subprocess make/kati
// and diffs the two outputs; here there is only one implementation to
// run, so a mismatch is diffed against the expected golden string with
// go-diff instead of against a second binary's output.
package pmake

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// assertOutput fails the test with a readable diff (teacher's
// dmp.DiffMain/DiffCleanupSemantic/DiffPrettyText idiom from
// run_test.go's check()) if got != want.
func assertOutput(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(want, got, true)
	diffs = dmp.DiffCleanupSemantic(diffs)
	t.Errorf("output mismatch (red=want, green=got):\n%s", dmp.DiffPrettyText(diffs))
}

func newTestEngine(t *testing.T, dir string) (*Engine, *bytes.Buffer) {
	t.Helper()
	e := NewEngine()
	e.opt.chdir = dir
	var buf bytes.Buffer
	e.stdout = &buf
	e.stderr = &buf
	e.macs.set("$", "$", levelInternal, false)
	e.macs.set("SHELL", "/bin/sh", levelMakefile, false)
	return e, &buf
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(contents), 0666); err != nil {
		t.Fatal(err)
	}
	return p
}

// S1: a plain dependency with a silent echo command.
func TestScenarioS1Basic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "makefile", "all: foo\nfoo:\n\t@echo building $@\n")

	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	e, buf := newTestEngine(t, dir)
	if err := e.ReadFile("makefile"); err != nil {
		t.Fatal(err)
	}
	failed, err := e.Make("all")
	if err != nil {
		t.Fatal(err)
	}
	if failed {
		t.Fatal("build reported failure")
	}
	assertOutput(t, buf.String(), "building foo\n")
}

// S3: pattern-substitution macro expansion.
func TestScenarioS3PatternSubst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "makefile", ""+
		"SRC = a.c b.c c.c\n"+
		"OBJ = $(SRC:%.c=obj/%.o)\n"+
		"all:;@echo $(OBJ)\n")

	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	e, buf := newTestEngine(t, dir)
	if err := e.ReadFile("makefile"); err != nil {
		t.Fatal(err)
	}
	failed, err := e.Make("all")
	if err != nil {
		t.Fatal(err)
	}
	if failed {
		t.Fatal("build reported failure")
	}
	assertOutput(t, buf.String(), "obj/a.o obj/b.o obj/c.o\n")
}

// S4: out-of-date detection, then idempotent re-run.
func TestScenarioS4OutOfDateThenUpToDate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo.c", "int main(void){return 0;}\n")
	writeFile(t, dir, "makefile", "foo.o: foo.c\n\tcp foo.c foo.o\n")

	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	e, buf := newTestEngine(t, dir)
	if err := e.ReadFile("makefile"); err != nil {
		t.Fatal(err)
	}
	failed, err := e.Make("foo.o")
	if err != nil {
		t.Fatal(err)
	}
	if failed {
		t.Fatal("build reported failure")
	}
	assertOutput(t, buf.String(), "cp foo.c foo.o\n")

	e2, buf2 := newTestEngine(t, dir)
	if err := e2.ReadFile("makefile"); err != nil {
		t.Fatal(err)
	}
	failed, err = e2.Make("foo.o")
	if err != nil {
		t.Fatal(err)
	}
	if failed {
		t.Fatal("second build reported failure")
	}
	assertOutput(t, buf2.String(), "pmake: 'foo.o' is up to date\n")
}

// S5: a cycle is detected and reported, no commands run.
func TestScenarioS5Circular(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "makefile", "a: b\n\t@echo cmd-a\nb: a\n\t@echo cmd-b\n")

	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	e, buf := newTestEngine(t, dir)
	if err := e.ReadFile("makefile"); err != nil {
		t.Fatal(err)
	}
	_, err := e.Make("a")
	if err == nil {
		t.Fatal("expected circular dependency error")
	}
	if got := buf.String(); got != "" {
		t.Errorf("expected no commands run, got %q", got)
	}
}

// S6: -q reports up-to-date vs. out-of-date without running commands.
func TestScenarioS6Question(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo.c", "v1\n")
	writeFile(t, dir, "makefile", "foo.o: foo.c\n\tcp foo.c foo.o\n")

	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	e, _ := newTestEngine(t, dir)
	if err := e.ReadFile("makefile"); err != nil {
		t.Fatal(err)
	}
	if failed, err := e.Make("foo.o"); err != nil || failed {
		t.Fatalf("initial build failed: failed=%v err=%v", failed, err)
	}

	e2, buf2 := newTestEngine(t, dir)
	e2.opt.question = true
	if err := e2.ReadFile("makefile"); err != nil {
		t.Fatal(err)
	}
	failed, err := e2.Make("foo.o")
	if err != nil {
		t.Fatal(err)
	}
	if failed {
		t.Fatalf("-q reported rebuild needed when up to date: %q", buf2.String())
	}

	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(dir, "foo.c"), future, future); err != nil {
		t.Fatal(err)
	}

	e3, _ := newTestEngine(t, dir)
	e3.opt.question = true
	if err := e3.ReadFile("makefile"); err != nil {
		t.Fatal(err)
	}
	failed, err = e3.Make("foo.o")
	if err != nil {
		t.Fatal(err)
	}
	if !failed {
		t.Fatal("-q did not report rebuild needed after touching foo.c")
	}
}

// TestEnvVsMakefilePrecedence exercises Testable Property #6: a
// makefile assignment overrides the same-named environment variable by
// default, and -e reverses that so the environment wins instead. A
// prior bug gave the environment a level that beat the makefile in
// both cases.
func TestEnvVsMakefilePrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "makefile", "M = b\nall:;@echo $(M)\n")

	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	t.Setenv("M", "a")

	e, buf := newTestEngine(t, dir)
	e.ImportEnvironment()
	if err := e.ReadFile("makefile"); err != nil {
		t.Fatal(err)
	}
	if failed, err := e.Make("all"); err != nil || failed {
		t.Fatalf("build failed: failed=%v err=%v", failed, err)
	}
	assertOutput(t, buf.String(), "b\n")

	e2, buf2 := newTestEngine(t, dir)
	e2.opt.envOverride = true
	e2.ImportEnvironment()
	if err := e2.ReadFile("makefile"); err != nil {
		t.Fatal(err)
	}
	if failed, err := e2.Make("all"); err != nil || failed {
		t.Fatalf("-e build failed: failed=%v err=%v", failed, err)
	}
	assertOutput(t, buf2.String(), "a\n")
}

// Double-colon independence (testable property 7): each "::" rule is
// its own sub-build, and only the out-of-date branch runs.
func TestDoubleColonIndependence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "makefile", ""+
		"all:: one\n\t@echo one-branch\n"+
		"all:: two\n\t@echo two-branch\n"+
		"one:\n\t@echo make-one\n"+
		"two:\n\t@echo make-two\n")

	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	e, buf := newTestEngine(t, dir)
	if err := e.ReadFile("makefile"); err != nil {
		t.Fatal(err)
	}
	failed, err := e.Make("all")
	if err != nil {
		t.Fatal(err)
	}
	if failed {
		t.Fatal("build reported failure")
	}
	assertOutput(t, buf.String(), "make-one\none-branch\nmake-two\ntwo-branch\n")
}
