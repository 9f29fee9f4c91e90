package runtime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const goldenDir = "../../testdata"

// TestGolden runs every testdata/*.fail program and compares what it prints
// with the matching .expected file.
func TestGolden(t *testing.T) {
	sources, err := filepath.Glob(filepath.Join(goldenDir, "*.fail"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) == 0 {
		t.Fatalf("no golden programs in %s", goldenDir)
	}
	for _, src := range sources {
		name := strings.TrimSuffix(filepath.Base(src), ".fail")
		t.Run(name, func(t *testing.T) { goldenTest(t, src) })
	}
}

func goldenTest(t *testing.T, srcPath string) {
	t.Helper()

	source, err := os.ReadFile(srcPath)
	if err != nil {
		t.Fatalf("read %s: %v", srcPath, err)
	}
	expectedPath := strings.TrimSuffix(srcPath, ".fail") + ".expected"
	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("read %s: %v", expectedPath, err)
	}

	got, err := runSource(string(source))
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}

	wantLines := strings.Split(strings.TrimRight(string(expected), "\n"), "\n")
	gotLines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if strings.Join(wantLines, "\n") == strings.Join(gotLines, "\n") {
		return
	}

	t.Errorf("output mismatch for %s", filepath.Base(srcPath))
	for i := 0; i < max(len(wantLines), len(gotLines)); i++ {
		want, have := "<missing>", "<missing>"
		if i < len(wantLines) {
			want = wantLines[i]
		}
		if i < len(gotLines) {
			have = gotLines[i]
		}
		mark := "  "
		if want != have {
			mark = "! "
		}
		t.Logf("%sline %d: expected=%q got=%q", mark, i+1, want, have)
	}
}
