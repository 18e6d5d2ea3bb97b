// Command zippy is a list/extract/remove/compact front end over ziparchive:
// a random-access reader and in-place editor for ZIP32 archives whose
// entries are DEFLATE-compressed.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/CodeJuan/zipstream/remote"
	"github.com/CodeJuan/zipstream/ziparchive"
)

// CLI is zippy's flag surface: zippy [OPTIONS] ZIPFILE [ENTRY].
type CLI struct {
	All     bool   `kong:"help='Extract all entries to stdout, or to --out-dir if given.',short='a',xor='mode'"`
	List    bool   `kong:"help='List entry names to stdout.',short='t',xor='mode'"`
	Remove  string `kong:"help='Remove the named entry and persist the archive.',short='r',placeholder='NAME'"`
	Compact bool   `kong:"help='Defragment the archive, eliminating gaps left by removed or replaced entries.',short='d'"`

	URL    bool   `kong:"help='Treat ZIPFILE as an HTTP(S) URL and open it read-only via Range requests.'"`
	OutDir string `kong:"help='Directory to extract entries into, one file per entry, instead of stdout.',name='out-dir',placeholder='DIR'"`
	Debug  bool   `kong:"help='Enable debug logging.'"`

	ZipFile string `kong:"arg,help='Path (or, with --url, URL) of the ZIP archive.'"`
	Entry   string `kong:"arg,optional,help='Name of a single entry to extract.'"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("zippy"),
		kong.Description("Random-access reader and in-place editor for DEFLATE-compressed ZIP32 archives."),
		kong.UsageOnError(),
	)

	if cli.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := run(&cli); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func run(cli *CLI) error {
	archive, err := openArchive(cli)
	if err != nil {
		return errors.Wrap(err, "zippy: open")
	}
	defer archive.Close()

	switch {
	case cli.Remove != "":
		return removeEntry(archive, cli.Remove)
	case cli.Compact:
		return compact(archive)
	case cli.List:
		return list(archive)
	case cli.All:
		return extractAll(archive, cli.OutDir)
	case cli.Entry != "":
		return extractOne(archive, cli.Entry, os.Stdout)
	default:
		return errors.New("zippy: nothing to do; pass -a, -t, -r, -d, or an ENTRY name")
	}
}

func openArchive(cli *CLI) (*ziparchive.Archive, error) {
	if !cli.URL {
		return ziparchive.Open(cli.ZipFile)
	}

	r := remote.New(context.Background(), cli.ZipFile, nil)
	size, err := r.Size()
	if err != nil {
		return nil, errors.Wrapf(err, "zippy: probe size of %s", cli.ZipFile)
	}

	logrus.Debugf("zippy: opened %s read-only over HTTP, size %d", cli.ZipFile, size)
	return ziparchive.OpenReader(r, size)
}

func list(archive *ziparchive.Archive) error {
	for _, name := range archive.Entries() {
		fmt.Println(name)
	}
	return nil
}

func extractOne(archive *ziparchive.Archive, name string, w io.Writer) error {
	e, err := archive.Entry(name, 0, ziparchive.Read)
	if err != nil {
		return errors.Wrapf(err, "zippy: open entry %q", name)
	}
	defer e.Close()

	if _, err := io.Copy(w, e); err != nil {
		return errors.Wrapf(err, "zippy: extract entry %q", name)
	}
	return nil
}

func extractAll(archive *ziparchive.Archive, outDir string) error {
	for _, name := range archive.Entries() {
		if outDir == "" {
			if err := extractOne(archive, name, os.Stdout); err != nil {
				return err
			}
			continue
		}

		dst := filepath.Join(outDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return errors.Wrapf(err, "zippy: create directory for %q", name)
		}

		f, err := os.Create(dst)
		if err != nil {
			return errors.Wrapf(err, "zippy: create %q", dst)
		}
		if err := extractOne(archive, name, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return errors.Wrapf(err, "zippy: close %q", dst)
		}
		logrus.Debugf("zippy: extracted %s -> %s", name, dst)
	}
	return nil
}

func removeEntry(archive *ziparchive.Archive, name string) error {
	if err := archive.Remove(name); err != nil {
		return errors.Wrapf(err, "zippy: remove %q", name)
	}
	logrus.Debugf("zippy: removed %s", name)
	return nil
}

func compact(archive *ziparchive.Archive) error {
	if err := archive.Compact(); err != nil {
		return errors.Wrap(err, "zippy: compact")
	}
	logrus.Debug("zippy: compacted archive")
	return nil
}
