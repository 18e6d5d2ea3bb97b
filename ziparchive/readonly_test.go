package ziparchive

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"
)

func TestOpenReader(t *testing.T) {
	path := buildFixture(t, map[string]string{
		"a.txt":     "hello from a",
		"dir/b.bin": "binary-ish content",
	}, "")

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}

	a, err := OpenReader(f, info.Size())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if got, want := a.Entries(), []string{"a.txt", "dir/b.bin"}; len(got) != len(want) {
		t.Fatalf("entries = %v", got)
	}

	e, err := a.Entry("a.txt", 0, Read)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	got, err := io.ReadAll(e)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hello from a")) {
		t.Fatalf("got %q", got)
	}

	if _, err := a.Entry("a.txt", 64, Write); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("Entry(Write) on read-only archive: err = %v, want ErrReadOnly", err)
	}
}
