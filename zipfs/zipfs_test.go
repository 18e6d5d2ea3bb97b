package zipfs

import (
	"archive/zip"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/CodeJuan/zipstream/ziparchive"
)

func buildFixture(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.zip")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"a.txt":            "hello from a",
		"dir/b.bin":        "binary-ish content for b",
		"dir/sub/c.dat":    "deeper content for c",
		"top-level-d.json": `{"k":"v"}`,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestFS(t *testing.T) {
	path := buildFixture(t)

	archive, err := ziparchive.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	fsys, err := New(archive)
	if err != nil {
		t.Fatal(err)
	}

	if err := fstest.TestFS(fsys, "a.txt", "dir/b.bin", "dir/sub/c.dat", "top-level-d.json"); err != nil {
		t.Fatal(err)
	}
}

func TestReadFileMatchesArchive(t *testing.T) {
	path := buildFixture(t)

	archive, err := ziparchive.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	fsys, err := New(archive)
	if err != nil {
		t.Fatal(err)
	}

	got, err := fs.ReadFile(fsys, "dir/sub/c.dat")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "deeper content for c" {
		t.Fatalf("got %q", got)
	}
}

func TestWalkDirVisitsSynthesizedDirs(t *testing.T) {
	path := buildFixture(t)

	archive, err := ziparchive.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	fsys, err := New(archive)
	if err != nil {
		t.Fatal(err)
	}

	var dirs, files []string
	if err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, p)
		} else {
			files = append(files, p)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	wantDirs := []string{".", "dir", "dir/sub"}
	if !equalSets(dirs, wantDirs) {
		t.Fatalf("dirs = %v, want %v", dirs, wantDirs)
	}

	wantFiles := []string{"a.txt", "dir/b.bin", "dir/sub/c.dat", "top-level-d.json"}
	if !equalSets(files, wantFiles) {
		t.Fatalf("files = %v, want %v", files, wantFiles)
	}
}

func equalSets(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := map[string]bool{}
	for _, g := range got {
		seen[g] = true
	}
	for _, w := range want {
		if !seen[w] {
			return false
		}
	}
	return true
}
