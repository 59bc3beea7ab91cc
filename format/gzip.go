package format

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// GzipMember is the single file recovered from a gzip stream: its original
// name, the format kind that name routes to, and the decompressed bytes.
type GzipMember struct {
	Name string
	Kind Kind
	Body io.ReadCloser
}

// OpenGzip unwraps one gzip member and resolves its inner format from the
// original file name embedded in the gzip header.
//
// Streams created with --no-name (or via tar) carry no name and return
// ErrNoMemberName: without the name the content cannot be routed to a
// decoder. An inner name ending in a compressed extension returns
// ErrNestedCompression; an inner name outside the supported set returns
// ErrUnsupportedExtension. A stream that is not gzip at all returns
// ErrMismatch.
func OpenGzip(rc io.ReadCloser) (*GzipMember, error) {
	gr, err := gzip.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("%w: %v", ErrMismatch, err)
	}

	name := gr.Header.Name
	if name == "" {
		_ = gr.Close()
		_ = rc.Close()
		return nil, ErrNoMemberName
	}

	ext := Extension(name)
	if ext == "gz" || ext == "zip" {
		_ = gr.Close()
		_ = rc.Close()
		return nil, ErrNestedCompression
	}

	kind := KindForExtension(ext)
	if kind == KindUnknown || kind == KindGzip {
		_ = gr.Close()
		_ = rc.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}

	return &GzipMember{
		Name: name,
		Kind: kind,
		Body: &gzipBody{gr: gr, closer: rc},
	}, nil
}

// gzipBody reads decompressed bytes and closes both the gzip reader and
// the underlying stream.
type gzipBody struct {
	gr     *gzip.Reader
	closer io.Closer
	closed bool
}

func (b *gzipBody) Read(p []byte) (int, error) {
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	return b.gr.Read(p)
}

func (b *gzipBody) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.gr.Close(); err != nil {
		_ = b.closer.Close()
		return err
	}
	return b.closer.Close()
}
