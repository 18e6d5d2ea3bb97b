package remote

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestReadAt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.bin")

	data := make([]byte, 256*1024)
	for i := range data {
		data[i] = byte(rand.IntN(256))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer s.Close()

	r := New(context.Background(), s.URL+"/fixture.bin", s.Client().Transport)

	size, err := r.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(data)) {
		t.Fatalf("Size() = %d, want %d", size, len(data))
	}

	for range 100 {
		start := rand.Int64N(size)
		length := rand.Int64N(size-start) + 1

		want := make([]byte, length)
		copy(want, data[start:start+length])

		got := make([]byte, length)
		n, err := r.ReadAt(got, start)
		if err != nil {
			t.Fatalf("ReadAt(%d, %d): %v", start, length, err)
		}
		if int64(n) != length {
			t.Fatalf("ReadAt(%d, %d): read %d bytes", start, length, n)
		}
		if string(got) != string(want) {
			t.Fatalf("ReadAt(%d, %d): mismatch", start, length)
		}
	}
}

func TestReadAtRedirect(t *testing.T) {
	dir := t.TempDir()
	data := []byte("the quick brown fox jumps over the lazy dog")
	if err := os.WriteFile(filepath.Join(dir, "real.bin"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/moved.bin", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/real.bin", http.StatusFound)
	})
	mux.Handle("/", http.FileServer(http.Dir(dir)))

	s := httptest.NewServer(mux)
	defer s.Close()

	r := New(context.Background(), s.URL+"/moved.bin", s.Client().Transport)

	got := make([]byte, len(data))
	n, err := r.ReadAt(got, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(data) {
		t.Fatalf("read %d bytes, want %d", n, len(data))
	}
	if string(got) != string(data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}
