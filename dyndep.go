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

// C5: the inference-rule resolver. Grounded directly on
// original_source/rules.c's dyndep()/dyndep0()/has_suffix(), kept close
// to the original's two-function split (dyndep splits a target into
// base+suffix and tries each known .SUFFIXES entry as the target
// suffix; dyndep0 does the inner search over candidate source suffixes)
// since that split is exactly spec §4.5's algorithm.
package pmake

// statName fills in np's modtime if it hasn't been probed yet,
// original_source/rules.c's "if (!ip->n_tim.tv_sec) modtime(ip);".
func (e *Engine) statName(np *name) {
	if !np.mtime.isZero() {
		return
	}
	mt, err := modtime(np.s)
	if err != nil {
		e.fatalf("%v", err)
	}
	np.mtime = mt
}

// dyndepResult is what dyndep() hands back on success: the implicit
// prerequisite name and the command list to run (borrowed from the
// suffix rule that matched; never mutated).
type dyndepResult struct {
	prereq *name
	cmds   *cmd
	tsuff  string
}

// dyndep searches for an inference rule that can build np, per spec
// §4.5. It returns ok=false if none applies.
func (e *Engine) dyndep(np *name) (dyndepResult, bool) {
	lib, member, isLib := splitLib(np.s)
	base := lib
	if isLib {
		base = member
	}

	if e.opt.posix == posixExt && !isLib {
		// Extensions lift the "one or two periods" restriction: try
		// every known suffix as the target suffix, in .SUFFIXES
		// declaration order, before falling back to a single-suffix
		// rule (".c:" style).
		foundSuffix := false
		for _, tsuff := range e.defaultSuffixes {
			if hasSuffix(base, tsuff) {
				foundSuffix = true
				stem := base[:len(base)-len(tsuff)]
				if ip, cmds, ok := e.dyndep0(stem, tsuff); ok {
					return dyndepResult{prereq: ip, cmds: cmds, tsuff: tsuff}, true
				}
			}
		}
		if !foundSuffix {
			if ip, cmds, ok := e.dyndep0(base, ""); ok {
				return dyndepResult{prereq: ip, cmds: cmds, tsuff: ""}, true
			}
		}
		return dyndepResult{}, false
	}

	tsuff := suffixOf(base)
	stem := base[:len(base)-len(tsuff)]
	if ip, cmds, ok := e.dyndep0(stem, tsuff); ok {
		return dyndepResult{prereq: ip, cmds: cmds, tsuff: tsuff}, true
	}
	return dyndepResult{}, false
}

func hasSuffix(name, suffix string) bool {
	if suffix == "" {
		return false
	}
	if len(name) <= len(suffix) {
		return false
	}
	return name[len(name)-len(suffix):] == suffix
}

// dyndep0 implements spec §4.5's inner loop: for each known suffix S,
// try the inference rule "S+tsuff" against candidate source "base+S".
// chain, when extensions are enabled and the direct pass fails, makes a
// second pass that recursively resolves the candidate itself (so
// "foo.y -> foo.c -> foo.o" chains), marking each inference rule tried
// so a chain never reuses the same rule twice.
func (e *Engine) dyndep0(base, tsuff string) (*name, *cmd, bool) {
	if ip, cmds, ok := e.dyndep0Pass(base, tsuff, false); ok {
		return ip, cmds, true
	}
	if e.opt.posix == posixExt {
		return e.dyndep0Pass(base, tsuff, true)
	}
	return nil, nil, false
}

func (e *Engine) dyndep0Pass(base, tsuff string, chain bool) (*name, *cmd, bool) {
	for _, psuff := range e.defaultSuffixes {
		sp := e.names.find(psuff + tsuff)
		if sp == nil || sp.rule == nil {
			continue
		}
		if sp.has(nMark) {
			continue
		}
		ip := e.internOrdered(base + psuff)
		if ip.has(nDoing) {
			continue
		}
		e.statName(ip)

		var gotIP bool
		if !chain {
			gotIP = !ip.mtime.isZero() || ip.has(nTarget)
		} else {
			sp.set(nMark)
			_, ok := e.dyndep(ip)
			gotIP = ok
			sp.clear(nMark)
		}
		if gotIP {
			return ip, firstCmds(sp), true
		}
	}
	return nil, nil, false
}
