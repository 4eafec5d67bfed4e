package pdf

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// erroringBody yields a few bytes and then fails, simulating a connection
// reset or client-timeout partway through a Range response body.
type erroringBody struct {
	remaining []byte
	failErr   error
	failed    bool
}

func (b *erroringBody) Read(p []byte) (int, error) {
	if len(b.remaining) > 0 {
		n := copy(p, b.remaining)
		b.remaining = b.remaining[n:]
		return n, nil
	}
	if !b.failed {
		b.failed = true
		return 0, b.failErr
	}
	return 0, io.EOF
}

func (b *erroringBody) Close() error { return nil }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestRangeGetSurfacesReadErrorAsIOError(t *testing.T) {
	wantErr := errors.New("connection reset by peer")
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusPartialContent,
			Header:     make(http.Header),
			Body:       &erroringBody{remaining: []byte("partial"), failErr: wantErr},
		}, nil
	})

	hs := &HTTPSource{
		url:    "http://example.invalid/doc.pdf",
		client: &http.Client{Transport: transport},
		store:  newChunkStore(1024, 4, nil),
	}

	_, _, _, err := hs.rangeGet(context.Background(), 0, 16)
	require.Error(t, err)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.ErrorIs(t, ioErr.Unwrap(), wantErr)
}

func TestRangeGetTreatsEOFAsSuccess(t *testing.T) {
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusPartialContent,
			Header:     make(http.Header),
			Body:       &erroringBody{remaining: []byte("hello world"), failErr: io.EOF},
		}, nil
	})

	hs := &HTTPSource{
		url:    "http://example.invalid/doc.pdf",
		client: &http.Client{Transport: transport},
		store:  newChunkStore(1024, 4, nil),
	}

	data, _, accept, err := hs.rangeGet(context.Background(), 0, 16)
	require.NoError(t, err)
	require.True(t, accept)
	require.Equal(t, "hello world", string(data))
}
