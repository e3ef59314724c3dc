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

// C8: the command runner. Grounded on original_source/make.c's docmds()/
// touch()/remove_target(), with shell invocation done the way the
// teacher's funcShell.Eval (func.go) drives os/exec instead of a C
// library system() call: os/exec.Command with inherited stdio, rather
// than a hand-rolled fork/exec.
package pmake

import (
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
)

// docmds runs every command line in cp against np, spec §4.8. It
// returns true if a command failed and -k/keepGoing is in effect, so
// the caller can record FAILURE without also unwinding the process (a
// failure without -k instead panics straight through via fatalf,
// matching original_source's exit(status)).
func (e *Engine) docmds(np *name, cp *cmd) bool {
	for c := cp; c != nil; c = c.next {
		e.curFile, e.curLine = c.file, c.lineno
		text := e.expand(c.text)

		silent := e.opt.silent || np.has(nSilent) || e.opt.touch
		ignore := e.opt.ignoreErrors || np.has(nIgnore)
		domake := !e.opt.dryRun && !e.opt.touch

		q := text
		forceRun := false
		explicitSilent := false
	prefix:
		for len(q) > 0 {
			switch q[0] {
			case '@':
				silent = true
				explicitSilent = true
			case '-':
				ignore = true
			case '+':
				forceRun = true
			default:
				break prefix
			}
			q = q[1:]
		}

		if forceRun {
			// '+' must not override '@' or .SILENT.
			if !explicitSilent && !np.has(nSilent) && !e.opt.silent {
				silent = false
			}
			domake = true
		} else if !domake {
			silent = e.opt.touch
		}

		if q == "" {
			continue
		}

		if !silent {
			e.print("%s\n", q)
		}

		if !domake {
			continue
		}

		e.curTarget = np
		status, err := e.runShellCommand(q, ignore)
		e.curTarget = nil
		if err != nil {
			e.fatalf("couldn't execute '%s': %v", q, err)
		}
		if status != 0 && !ignore {
			e.warnf("failed to build '%s'", np.s)
			if wasSignaled(status) {
				e.removeTarget(np)
			}
			if e.opt.keepGoing {
				return true
			}
			e.fatalf("failed to build '%s'", np.s)
		}
	}
	return false
}

// runShellCommand runs text via /bin/sh -c, prepending "set -e;" unless
// the command is marked ignore or we are outside strict POSIX mode
// (spec §4.8 step 4), and returns its exit status.
func (e *Engine) runShellCommand(text string, ignore bool) (int, error) {
	cmdText := text
	if !ignore && e.opt.posix != posixExt {
		cmdText = "set -e;" + text
	}
	shell := "/bin/sh"
	if mv := e.macs.lookup("SHELL"); mv != nil && mv.value != "" {
		shell = mv.value
	}
	glog.V(2).Infof("exec %s -c %q", shell, cmdText)
	cmd := exec.Command(shell, "-c", cmdText)
	cmd.Stdin = os.Stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return 128 + int(ws.Signal()), nil
			}
			return ws.ExitStatus(), nil
		}
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func wasSignaled(status int) bool {
	return status == 128+int(syscall.SIGINT) || status == 128+int(syscall.SIGQUIT)
}

// runShell backs the `!=` shell-assignment form (see runShellCapture);
// it runs text and returns its captured stdout with one trailing
// newline removed and the remaining newlines folded to spaces, matching
// $(shell ...)-style output formatting.
func (e *Engine) runShell(text string) (string, error) {
	shell := "/bin/sh"
	if mv := e.macs.lookup("SHELL"); mv != nil && mv.value != "" {
		shell = mv.value
	}
	cmd := exec.Command(shell, "-c", text)
	cmd.Stderr = e.stderr
	out, err := cmd.Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return "", err
		}
	}
	s := strings.TrimSuffix(string(out), "\n")
	s = strings.ReplaceAll(s, "\n", " ")
	return s, nil
}

// touch updates np's modification time to now, creating it if absent,
// original_source/make.c's touch().
func (e *Engine) touch(np *name) {
	if np.has(nPhony) {
		return
	}
	if e.opt.dryRun || !e.opt.silent {
		e.print("touch %s\n", np.s)
	}
	if e.opt.dryRun {
		return
	}
	now := time.Now()
	if err := os.Chtimes(np.s, now, now); err != nil {
		if os.IsNotExist(err) {
			f, ferr := os.OpenFile(np.s, os.O_RDWR|os.O_CREATE, 0666)
			if ferr == nil {
				f.Close()
				return
			}
		}
		e.warnf("touch %s failed: %v", np.s, err)
	}
}

// removeTarget deletes the in-progress target when a command was killed
// by SIGINT/SIGQUIT or pmake itself received SIGHUP/SIGTERM, unless it
// is precious, phony, or we are in a mode that shouldn't touch the
// filesystem (spec §5 Cancellation). An ordinary command failure does
// not remove the target.
func (e *Engine) removeTarget(np *name) {
	if np == nil || e.opt.dryRun || e.opt.printDetails || e.opt.touch {
		return
	}
	if np.has(nPrecious) || np.has(nPhony) {
		return
	}
	if err := os.Remove(np.s); err == nil {
		e.warnf("'%s' removed", np.s)
	}
}

// InstallSignalHandlers wires SIGHUP/SIGTERM to remove the
// currently-building target before re-raising the signal to self,
// mirroring original_source/main.c's init_signal()/make_handler().
func (e *Engine) InstallSignalHandlers() {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGHUP, syscall.SIGTERM)
	go func() {
		sig := <-ch
		signal.Stop(ch)
		e.removeTarget(e.curTarget)
		p, _ := os.FindProcess(os.Getpid())
		p.Signal(sig)
	}()
}
