package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Golden compares got against testdata/<name>.golden.
//
// subs are old, new pairs applied to got first, so values that change per run
// (temp dirs, the config dir) can be written as stable placeholders. Setting
// GOLDEN_UPDATE rewrites the file with the substituted output.
func Golden(t *testing.T, name string, got []byte, subs ...string) {
	t.Helper()

	if len(subs)%2 != 0 {
		t.Fatalf("golden %s: substitutions must come in old, new pairs", name)
	}
	if len(subs) > 0 {
		got = []byte(strings.NewReplacer(subs...).Replace(string(got)))
	}

	goldenPath := filepath.Join("testdata", name+".golden")

	if os.Getenv("GOLDEN_UPDATE") != "" {
		if err := os.MkdirAll("testdata", 0o755); err != nil {
			t.Fatalf("create testdata dir: %v", err)
		}
		if err := os.WriteFile(goldenPath, got, 0o644); err != nil {
			t.Fatalf("update golden file: %v", err)
		}
		return
	}

	want, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("read golden file %s: %v\nGot:\n%s", goldenPath, err, got)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("output mismatch for %s\nWant:\n%s\nGot:\n%s", name, want, got)
	}
}

// GoldenString is Golden for string output.
func GoldenString(t *testing.T, name, got string, subs ...string) {
	t.Helper()
	Golden(t, name, []byte(got), subs...)
}
