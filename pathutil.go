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
	"path/filepath"
	"strings"
)

// hasWildcardMeta reports whether pat contains an unescaped glob
// metacharacter, mirroring wildchar() in original_source/input.c.
func hasWildcardMeta(pat string) bool {
	for i := 0; i < len(pat); i++ {
		switch pat[i] {
		case '\\':
			i++
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// wildcardUnescape removes backslashes that escape a glob metacharacter,
// the cleanup step wildcard() performs on a no-match pattern in
// original_source/input.c.
func wildcardUnescape(pat string) string {
	var buf bytes.Buffer
	for i := 0; i < len(pat); i++ {
		if pat[i] == '\\' && i+1 < len(pat) {
			switch pat[i+1] {
			case '*', '?', '[', '\\':
				i++
			}
		}
		buf.WriteByte(pat[i])
	}
	return buf.String()
}

func filepathClean(path string) string {
	var names []string
	if filepath.IsAbs(path) {
		names = append(names, "")
	}
	for _, n := range strings.Split(path, string(filepath.Separator)) {
		switch n {
		case "", ".":
		case "..":
			if len(names) > 0 && names[len(names)-1] != "" && names[len(names)-1] != ".." {
				names = names[:len(names)-1]
				continue
			}
			names = append(names, n)
		default:
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "."
	}
	return strings.Join(names, string(filepath.Separator))
}

// wildcardExpand expands a single whitespace-separated token (already
// stripped of escapes applying to non-glob characters) into the sorted
// list of matching file names, or the unescaped literal token if it has
// no metacharacters or no match — the behavior of wildcard() in
// original_source/input.c. Unlike the teacher's Android-oriented
// fsCache-backed Glob, there is no cross-run directory-listing cache
// here: spec.md's Non-goals rule out caching of any kind between runs,
// and a single make invocation never globs the same pattern twice
// often enough to make an in-process cache worth the complexity.
func wildcardExpand(pat string) []string {
	if !hasWildcardMeta(pat) {
		return []string{wildcardUnescape(pat)}
	}
	matches, err := filepath.Glob(pat)
	if err != nil || len(matches) == 0 {
		return []string{wildcardUnescape(pat)}
	}
	return matches
}
