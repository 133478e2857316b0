package execenv

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestNewValidatesTargetURL(t *testing.T) {
	cases := []struct {
		url string
		ok  bool
	}{
		{"http://api.test", true},
		{"https://api.test/v1/", true},
		{"", true}, // probe-less environments are allowed
		{"not a url", false},
		{"/relative/only", false},
	}
	for _, tc := range cases {
		_, err := New(Config{TargetURL: tc.url})
		if tc.ok && err != nil {
			t.Errorf("New(%q): %v", tc.url, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("New(%q): expected error", tc.url)
		}
	}
}

func TestTargetURLStripsTrailingSlash(t *testing.T) {
	env, err := New(Config{TargetURL: "http://api.test/v1/"})
	if err != nil {
		t.Fatal(err)
	}
	if got := env.TargetURL(); got != "http://api.test/v1" {
		t.Errorf("TargetURL = %q", got)
	}
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	env, err := New(Config{OutputRoot: root})
	if err != nil {
		t.Fatal(err)
	}

	got, err := env.ResolvePath("server/app.py")
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if want := filepath.Join(root, "server", "app.py"); got != want {
		t.Errorf("resolved = %q, want %q", got, want)
	}

	for _, rel := range []string{"", "../outside", "a/../../b", "/etc/passwd"} {
		if _, err := env.ResolvePath(rel); err == nil {
			t.Errorf("ResolvePath(%q): expected error", rel)
		}
	}
}

func TestResolvePathNeedsOutputRoot(t *testing.T) {
	env, err := New(Config{TargetURL: "http://api.test"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.ResolvePath("x"); err == nil || !strings.Contains(err.Error(), "output root") {
		t.Errorf("err = %v", err)
	}
}
