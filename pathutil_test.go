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

import "testing"

func TestHasWildcardMeta(t *testing.T) {
	for _, tc := range []struct {
		pat  string
		want bool
	}{
		{"foo.c", false},
		{"foo\\*.c", false},
		{"foo*.c", true},
		{"foo?.c", true},
		{"foo[ab].c", true},
		{"foo\\?.c", false},
	} {
		if got := hasWildcardMeta(tc.pat); got != tc.want {
			t.Errorf("hasWildcardMeta(%q)=%v, want %v", tc.pat, got, tc.want)
		}
	}
}

func TestWildcardUnescape(t *testing.T) {
	for _, tc := range []struct {
		pat  string
		want string
	}{
		{"foo.c", "foo.c"},
		{"foo\\*.c", "foo*.c"},
		{"foo\\?.c", "foo?.c"},
		{"foo\\x.c", "foo\\x.c"},
	} {
		if got := wildcardUnescape(tc.pat); got != tc.want {
			t.Errorf("wildcardUnescape(%q)=%q, want %q", tc.pat, got, tc.want)
		}
	}
}

func TestFilepathClean(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"foo/bar", "foo/bar"},
		{"./foo/bar", "foo/bar"},
		{"foo/../bar", "bar"},
		{"/foo/../bar", "/bar"},
		{"", "."},
	} {
		if got := filepathClean(tc.in); got != tc.want {
			t.Errorf("filepathClean(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWildcardExpandNoMeta(t *testing.T) {
	got := wildcardExpand("plain_name.c")
	if len(got) != 1 || got[0] != "plain_name.c" {
		t.Errorf("wildcardExpand(plain)=%v, want [plain_name.c]", got)
	}
}

func TestWildcardExpandNoMatch(t *testing.T) {
	got := wildcardExpand("no_such_dir_xyz/*.c")
	if len(got) != 1 || got[0] != "no_such_dir_xyz/*.c" {
		t.Errorf("wildcardExpand(no match)=%v, want literal pattern back", got)
	}
}
