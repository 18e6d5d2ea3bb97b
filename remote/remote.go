// Package remote implements an io.ReaderAt over HTTP range requests, so a
// read-only ziparchive.Archive can be opened against a URL instead of a
// local file. The central directory scan and every entry read then turn
// into Range: requests against the same URI.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// Reader is an io.ReaderAt backed by HTTP Range requests against a single
// URI, following redirects by re-resolving the URI rather than assuming the
// server remembers where it sent us last time.
type Reader struct {
	ctx context.Context
	rt  http.RoundTripper
	uri string
}

// New returns a Reader that issues Range requests for uri using rt. If rt is
// nil, http.DefaultTransport is used.
func New(ctx context.Context, uri string, rt http.RoundTripper) *Reader {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &Reader{ctx: ctx, rt: rt, uri: uri}
}

// ReadAt implements io.ReaderAt by issuing a single Range: bytes=off-end
// request and reading exactly len(p) bytes from the response body. A
// redirect response is followed by re-resolving the URI against the
// original request and retrying once.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.uri, nil)
	if err != nil {
		return 0, errors.Wrap(err, "remote: build request")
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1))

	res, err := r.rt.RoundTrip(req)
	if err != nil {
		return 0, errors.Wrap(err, "remote: round trip")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusPartialContent {
		return io.ReadFull(res.Body, p)
	}

	redir := res.Header.Get("Location")
	if redir == "" || res.StatusCode/100 != 3 {
		return 0, errors.Errorf("remote: %q does not support range requests, saw status %d", r.uri, res.StatusCode)
	}

	u, err := url.Parse(redir)
	if err != nil {
		return 0, errors.Wrap(err, "remote: parse redirect location")
	}
	r.uri = req.URL.ResolveReference(u).String()

	return r.ReadAt(p, off)
}

// Size issues a single byte-range request to learn the resource's total
// length from the Content-Range response header, the way a caller must
// before handing a Reader to ziparchive.OpenReader (which needs the archive
// size up front to scan for the EOCD record from the end).
func (r *Reader) Size() (int64, error) {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.uri, nil)
	if err != nil {
		return 0, errors.Wrap(err, "remote: build request")
	}
	req.Header.Set("Range", "bytes=0-0")

	res, err := r.rt.RoundTrip(req)
	if err != nil {
		return 0, errors.Wrap(err, "remote: round trip")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusPartialContent {
		return 0, errors.Errorf("remote: %q does not support range requests, saw status %d", r.uri, res.StatusCode)
	}

	cr := res.Header.Get("Content-Range")
	var start, end, total int64
	if _, err := fmt.Sscanf(cr, "bytes %d-%d/%d", &start, &end, &total); err != nil {
		return 0, errors.Wrapf(err, "remote: parse Content-Range %q", cr)
	}

	return total, nil
}
