package network

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// acceptedEncodings is advertised on every request that carries no
// Accept-Encoding preference of its own.
const acceptedEncodings = "gzip, deflate, br"

// decodingTransport decorates a RoundTripper with transparent response body
// decoding. Transport-level compression stays disabled so the advertised
// encodings and the decode path live in one place.
type decodingTransport struct {
	next http.RoundTripper
}

func newDecodingTransport(next http.RoundTripper) *decodingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &decodingTransport{next: next}
}

func (d *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptedEncodings)
	}

	resp, err := d.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := d.decode(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// decode swaps resp.Body for a decoding reader when the response declares a
// supported Content-Encoding, and scrubs the headers that no longer describe
// the body.
func (d *decodingTransport) decode(resp *http.Response) error {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	if encoding == "" {
		return nil
	}

	body := &decodedBody{raw: resp.Body}
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("gzip reader: %w", err)
		}
		body.Reader, body.decoder = gz, gz
	case "deflate":
		// zlib covers the common server implementations of "deflate".
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("deflate reader: %w", err)
		}
		body.Reader, body.decoder = zr, zr
	case "br":
		// The brotli reader has no Close; only the raw body needs closing.
		body.Reader = brotli.NewReader(resp.Body)
	default:
		return fmt.Errorf("unsupported Content-Encoding: %s", encoding)
	}

	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// decodedBody reads through the decoder and closes it before the raw network
// body. decoder is nil for encodings whose reader needs no Close.
type decodedBody struct {
	io.Reader
	decoder io.Closer
	raw     io.ReadCloser
}

func (b *decodedBody) Close() error {
	var first error
	if b.decoder != nil {
		first = b.decoder.Close()
	}
	if err := b.raw.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
