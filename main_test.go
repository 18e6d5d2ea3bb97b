package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

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
		"a.txt":     "hello a",
		"dir/b.bin": "hello b",
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

func TestRunList(t *testing.T) {
	path := buildFixture(t)

	archive, err := ziparchive.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	if err := list(archive); err != nil {
		t.Fatal(err)
	}
}

func TestRunExtractOne(t *testing.T) {
	path := buildFixture(t)

	archive, err := ziparchive.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	var buf bytes.Buffer
	if err := extractOne(archive, "a.txt", &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "hello a" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestRunExtractAllToDir(t *testing.T) {
	path := buildFixture(t)
	outDir := t.TempDir()

	archive, err := ziparchive.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	if err := extractAll(archive, outDir); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "dir", "b.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello b" {
		t.Fatalf("got %q", got)
	}
}

func TestRunRemoveAndCompact(t *testing.T) {
	path := buildFixture(t)

	archive, err := ziparchive.Open(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := removeEntry(archive, "a.txt"); err != nil {
		t.Fatal(err)
	}
	if err := compact(archive); err != nil {
		t.Fatal(err)
	}
	if err := archive.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := ziparchive.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	entries := reopened.Entries()
	if len(entries) != 1 || entries[0] != "dir/b.bin" {
		t.Fatalf("entries = %v", entries)
	}
}

func TestRunNothingToDoIsAnError(t *testing.T) {
	path := buildFixture(t)

	cli := &CLI{ZipFile: path}
	if err := run(cli); err == nil {
		t.Fatal("expected error when no mode flag and no ENTRY is given")
	}
}
