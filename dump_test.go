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

import (
	"bytes"
	"testing"
)

// TestDumpDetailsSingleColon checks the -p layout (spec §6; format
// detail supplemented from original_source/check.c's print_details()
// in SPEC_FULL.md) for a plain single-colon target: macros, blank line,
// then one stanza of "target: prereqs / commands / blank".
func TestDumpDetailsSingleColon(t *testing.T) {
	e := NewEngine()
	var buf bytes.Buffer
	e.stdout = &buf
	e.opt.noBuiltinRules = true

	if err := e.ReadString("CC = gcc\nfoo: foo.c\n\t$(CC) -o foo foo.c\n", "<test>"); err != nil {
		t.Fatal(err)
	}
	e.DumpDetails()

	want := "CC = gcc\n\nfoo: foo.c\n\t$(CC) -o foo foo.c\n\n"
	assertOutput(t, buf.String(), want)
}

// TestDumpDetailsDoubleColon checks that each "::" rule prints its own
// full stanza rather than being merged with its siblings.
func TestDumpDetailsDoubleColon(t *testing.T) {
	e := NewEngine()
	var buf bytes.Buffer
	e.stdout = &buf
	e.opt.noBuiltinRules = true

	if err := e.ReadString("all:: one\n\t@echo one\nall:: two\n\t@echo two\n", "<test>"); err != nil {
		t.Fatal(err)
	}
	e.DumpDetails()

	want := "\nall:: one\n\t@echo one\n\nall:: two\n\t@echo two\n\n"
	assertOutput(t, buf.String(), want)
}
