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

// The built-in rules/macros text (spec §6 "Built-in rules"), transcribed
// verbatim in content from original_source/rules.c's RULES/RULES_2017/
// RULES_2024/MACROS/MACROS_2017/MACROS_2024/MACROS_EXT string macros —
// the exact recipes are the interface the spec calls out (C5/C7 resolve
// them as ordinary suffix rules), not something to redesign.
package pmake

const builtinMacros = "" +
	"CFLAGS=-O1\n" +
	"YACC=yacc\n" +
	"YFLAGS=\n" +
	"LEX=lex\n" +
	"LFLAGS=\n" +
	"AR=ar\n" +
	"ARFLAGS=-rv\n" +
	"LDFLAGS=\n"

const builtinMacros2017 = "" +
	"CC=c99\n" +
	"FC=fort77\n" +
	"FFLAGS=-O1\n"

const builtinMacros2024 = "CC=c17\n"

const builtinMacrosExt = "CC=cc\n"

const builtinRules2017 = "" +
	".SUFFIXES:.o .c .y .l .a .sh .f\n" +
	".f.o:\n" +
	"\t$(FC) $(FFLAGS) -c $<\n" +
	".f.a:\n" +
	"\t$(FC) -c $(FFLAGS) $<\n" +
	"\t$(AR) $(ARFLAGS) $@ $*.o\n" +
	"\trm -f $*.o\n" +
	".f:\n" +
	"\t$(FC) $(FFLAGS) $(LDFLAGS) -o $@ $<\n"

const builtinRules2024 = ".SUFFIXES:.o .c .y .l .a .sh\n"

const builtinRulesExt = "" +
	".c.o:\n" +
	"\t$(CC) $(CFLAGS) -c $<\n" +
	".y.o:\n" +
	"\t$(YACC) $(YFLAGS) $<\n" +
	"\t$(CC) $(CFLAGS) -c y.tab.c\n" +
	"\trm -f y.tab.c\n" +
	"\tmv y.tab.o $@\n" +
	".y.c:\n" +
	"\t$(YACC) $(YFLAGS) $<\n" +
	"\tmv y.tab.c $@\n" +
	".l.o:\n" +
	"\t$(LEX) $(LFLAGS) $<\n" +
	"\t$(CC) $(CFLAGS) -c lex.yy.c\n" +
	"\trm -f lex.yy.c\n" +
	"\tmv lex.yy.o $@\n" +
	".l.c:\n" +
	"\t$(LEX) $(LFLAGS) $<\n" +
	"\tmv lex.yy.c $@\n" +
	".c.a:\n" +
	"\t$(CC) -c $(CFLAGS) $<\n" +
	"\t$(AR) $(ARFLAGS) $@ $*.o\n" +
	"\trm -f $*.o\n" +
	".c:\n" +
	"\t$(CC) $(CFLAGS) $(LDFLAGS) -o $@ $<\n" +
	".sh:\n" +
	"\tcp $< $@\n" +
	"\tchmod a+x $@\n"

// builtinRulesText assembles the built-in-rules stream in the exact
// order original_source/rules.c's getrules() emits it: core macros,
// standard-specific macros, then (unless norules) standard-specific
// .SUFFIXES plus the extension recipe block.
func builtinRulesText(mode posixMode, norules bool) string {
	var s string
	s += builtinMacros
	switch mode {
	case posix2017:
		s += builtinMacros2017
	case posix2024:
		s += builtinMacros2024
	default:
		s += builtinMacrosExt
	}
	if norules {
		return s
	}
	switch mode {
	case posix2017:
		s += builtinRules2017
	default:
		s += builtinRules2024
	}
	s += builtinRulesExt
	return s
}
