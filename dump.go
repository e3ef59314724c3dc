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

// -p dump, grounded on original_source/check.c's print_details(): macros
// first, then one stanza per target (prerequisites line, commands, blank
// line for single-colon; one stanza per rule for double-colon). Walked
// in first-definition order (Engine.orderedNames/macs.orderedNames)
// rather than the original's hash-bucket order, since nothing in the
// spec's testable properties depends on bucket layout.
package pmake

// DumpDetails writes the -p report to the Engine's stdout.
func (e *Engine) DumpDetails() {
	for _, mname := range e.macs.orderedNames() {
		mv := e.macs.lookup(mname)
		if mv == nil {
			continue
		}
		e.print("%s = %s\n", mname, mv.value)
	}
	e.print("\n")

	for _, nm := range e.orderedNames {
		np := e.names.find(nm)
		if np == nil || np.rule == nil {
			continue
		}
		if !np.has(nDouble) {
			e.printRuleHeader(np)
			for rl := np.rule; rl != nil; rl = rl.next {
				e.printPrereqs(rl)
			}
			e.print("\n")
			for rl := np.rule; rl != nil; rl = rl.next {
				e.printCmds(rl)
			}
			e.print("\n")
		} else {
			for rl := np.rule; rl != nil; rl = rl.next {
				e.printRuleHeader(np)
				e.printPrereqs(rl)
				e.print("\n")
				e.printCmds(rl)
				e.print("\n")
			}
		}
	}
}

func (e *Engine) printRuleHeader(np *name) {
	e.print("%s:", np.s)
	if np.has(nDouble) {
		e.print(":")
	}
}

func (e *Engine) printPrereqs(rl *rule) {
	for d := rl.dep; d != nil; d = d.next {
		e.print(" %s", d.name.s)
	}
}

func (e *Engine) printCmds(rl *rule) {
	for c := rl.cmd; c != nil; c = c.next {
		e.print("\t%s\n", c.text)
	}
}
