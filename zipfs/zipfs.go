// Package zipfs exposes a ziparchive.Archive's entries as an io/fs.FS, so
// a decompressed archive can be walked with fs.WalkDir, served with
// http.FileServer(http.FS(...)), or read with fs.ReadFile.
//
// Unlike a tar or plain filesystem, a ZIP entry's payload is only available
// sequentially (see the Non-goals on random access within a compressed
// entry), so File here implements only Read and Close, not Seek or ReadAt.
package zipfs

import (
	"cmp"
	"errors"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/CodeJuan/zipstream/ziparchive"
)

// FS adapts a *ziparchive.Archive into an io/fs.FS. Entry names are taken
// to be "/"-separated paths, exactly as ZIP stores them; this package
// synthesizes the intermediate directories fs.WalkDir needs to see.
type FS struct {
	archive *ziparchive.Archive
	names   []string
	dirs    map[string][]fs.DirEntry
	info    map[string]ziparchive.Info
}

// New builds an FS over every entry currently in archive's directory. It
// does not watch for later Entry(Write)/Remove calls on archive — build a
// fresh FS after mutating the archive if you need the listing to reflect
// those changes.
func New(archive *ziparchive.Archive) (*FS, error) {
	fsys := &FS{
		archive: archive,
		dirs:    map[string][]fs.DirEntry{},
		info:    map[string]ziparchive.Info{},
	}

	dirCount := map[string]int{}
	var explicitDirs []string
	for _, name := range archive.Entries() {
		norm := normalize(name)
		if norm == "" {
			continue
		}

		// A ZIP entry whose on-disk name ends in "/" is an explicit,
		// possibly-empty directory marker, not a file.
		if strings.HasSuffix(name, "/") {
			explicitDirs = append(explicitDirs, norm)
			dirCount[path.Dir(norm)]++
			continue
		}

		info, err := archive.Stat(name)
		if err != nil {
			return nil, err
		}
		info.Name = norm
		fsys.info[norm] = info
		fsys.names = append(fsys.names, norm)

		dirCount[path.Dir(norm)]++
		for dir := range parents(norm) {
			dirCount[path.Dir(dir)]++
		}
	}

	for dir, count := range dirCount {
		fsys.dirs[dir] = make([]fs.DirEntry, 0, count)
	}
	for _, dir := range explicitDirs {
		if _, ok := fsys.dirs[dir]; !ok {
			fsys.dirs[dir] = []fs.DirEntry{}
		}
	}

	seenDir := map[string]bool{}
	registerDir := func(d string) {
		if seenDir[d] || d == "." {
			return
		}
		seenDir[d] = true
		parent := path.Dir(d)
		fsys.dirs[parent] = append(fsys.dirs[parent], dirEntry{fsys, d})
	}

	for _, name := range fsys.names {
		dir := path.Dir(name)
		fsys.dirs[dir] = append(fsys.dirs[dir], dirEntry{fsys, name})
		for d := range parents(name) {
			registerDir(d)
		}
	}
	for _, dir := range explicitDirs {
		registerDir(dir)
		for d := range parents(dir) {
			registerDir(d)
		}
	}

	for dir, entries := range fsys.dirs {
		slices.SortFunc(entries, func(a, b fs.DirEntry) int { return cmp.Compare(a.Name(), b.Name()) })
		fsys.dirs[dir] = entries
	}

	return fsys, nil
}

// parents yields every proper ancestor directory of name (but not "."),
// deepest first, so New can count and register synthesized directory
// entries for paths like "a/b/c.txt" even when "a" and "a/b" never appear
// as entries of their own in the archive.
func parents(name string) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		dir := path.Dir(name)
		for dir != "." {
			if !yield(dir) {
				return
			}
			dir = path.Dir(dir)
		}
	}
}

func normalize(name string) string {
	name = strings.TrimSuffix(name, "/")
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "./")
	return name
}

// Open implements fs.FS.
func (fsys *FS) Open(name string) (fs.File, error) {
	if name == "." {
		return &dirFile{fsys: fsys, name: "."}, nil
	}
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	if _, ok := fsys.dirs[name]; ok {
		return &dirFile{fsys: fsys, name: name}, nil
	}

	info, ok := fsys.info[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	entry, err := fsys.archive.Entry(name, 0, ziparchive.Read)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	return &file{entry: entry, info: info}, nil
}

// Stat implements fs.StatFS.
func (fsys *FS) Stat(name string) (fs.FileInfo, error) {
	if name == "." {
		return rootInfo{}, nil
	}
	if info, ok := fsys.info[name]; ok {
		return fileInfo{info}, nil
	}
	if _, ok := fsys.dirs[name]; ok {
		return dirInfo{name}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadDir implements fs.ReadDirFS.
func (fsys *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == "." {
		return fsys.dirs["."], nil
	}
	entries, ok := fsys.dirs[name]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return entries, nil
}

type fileInfo struct{ info ziparchive.Info }

func (i fileInfo) Name() string       { return path.Base(i.info.Name) }
func (i fileInfo) Size() int64        { return int64(i.info.UncompressedSize) }
func (i fileInfo) Mode() fs.FileMode  { return 0o444 }
func (i fileInfo) ModTime() time.Time { return i.info.ModTime }
func (i fileInfo) IsDir() bool        { return false }
func (i fileInfo) Sys() any           { return i.info }

type dirInfo struct{ name string }

func (i dirInfo) Name() string       { return path.Base(i.name) }
func (i dirInfo) Size() int64        { return 0 }
func (i dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (i dirInfo) ModTime() time.Time { return time.Time{} }
func (i dirInfo) IsDir() bool        { return true }
func (i dirInfo) Sys() any           { return nil }

type rootInfo struct{}

func (rootInfo) Name() string       { return "." }
func (rootInfo) Size() int64        { return 0 }
func (rootInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (rootInfo) ModTime() time.Time { return time.Time{} }
func (rootInfo) IsDir() bool        { return true }
func (rootInfo) Sys() any           { return nil }

// dirEntry adapts a name within fsys into an fs.DirEntry, dispatching to
// Stat so both synthesized directories and real entries share one
// implementation.
type dirEntry struct {
	fsys *FS
	name string
}

func (e dirEntry) Name() string { return path.Base(e.name) }

func (e dirEntry) IsDir() bool {
	_, ok := e.fsys.dirs[e.name]
	return ok
}

func (e dirEntry) Type() fs.FileMode {
	if e.IsDir() {
		return fs.ModeDir
	}
	return 0
}

func (e dirEntry) Info() (fs.FileInfo, error) { return e.fsys.Stat(e.name) }

// file is the fs.File view of one archive entry's decompressed content. It
// only supports sequential reads, per the archive's Non-goal on random
// access within an entry.
type file struct {
	entry *ziparchive.Entry
	info  ziparchive.Info
}

func (f *file) Stat() (fs.FileInfo, error) { return fileInfo{f.info}, nil }

func (f *file) Read(p []byte) (int, error) {
	return f.entry.Read(p)
}

func (f *file) Close() error { return f.entry.Close() }

// dirFile is the fs.ReadDirFile view of a directory, real or synthesized.
type dirFile struct {
	fsys   *FS
	name   string
	cursor int
}

func (d *dirFile) Stat() (fs.FileInfo, error) { return d.fsys.Stat(d.name) }
func (d *dirFile) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: errors.New("is a directory")}
}
func (d *dirFile) Close() error { return nil }

func (d *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	all := d.fsys.dirs[d.name]
	if n <= 0 {
		rest := all[d.cursor:]
		d.cursor = len(all)
		return rest, nil
	}
	if d.cursor >= len(all) {
		return nil, io.EOF
	}
	end := min(d.cursor+n, len(all))
	rest := all[d.cursor:end]
	d.cursor = end
	return rest, nil
}
