package pdf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/chunkworks/pdf/logger"
)

// HTTPSource is a ChunkedSource backed by HTTP range requests. It is the
// canonical "progressive" medium the spec is built around: only the header
// and tail are fetched on open, and Document operations such as PageCount
// and GetPage fetch further chunks on demand, calling EnsureRange whenever
// a read hits DataMissing.
type HTTPSource struct {
	url     string
	client  *http.Client
	store   *chunkStore
	group   singleflight.Group
	headers http.Header

	mu          sync.Mutex
	acceptRange bool
}

// OpenHTTPSource issues a ranged GET for the first chunk to discover length
// and range support; its body becomes the header chunk. When the length is
// known and the server honored the range, it then loads the tail chunk
// (xref is almost always found by scanning backward from EOF) through an
// errgroup, mirroring the teacher's async-prefetch idiom; a failed tail
// load is only logged.
func OpenHTTPSource(ctx context.Context, url string, cfg SourceConfig, timeout time.Duration, progress ProgressFunc) (*HTTPSource, error) {
	client := &http.Client{Timeout: timeout}
	hs := &HTTPSource{
		url:    url,
		client: client,
		store:  newChunkStore(cfg.ChunkSize, cfg.MaxCachedChunks, progress),
	}

	probeLen := cfg.ChunkSize
	data, total, accept, err := hs.rangeGet(ctx, 0, probeLen)
	if err != nil {
		return nil, err
	}
	hs.acceptRange = accept
	if total > 0 {
		hs.store.setLength(total)
	}
	hs.store.put(0, data)

	if total > 0 && accept {
		g, gctx := errgroup.WithContext(ctx)
		tailIdx := hs.store.chunkIndex(total - 1)
		if tailIdx != 0 {
			g.Go(func() error {
				return hs.loadChunk(gctx, tailIdx)
			})
		}
		if err := g.Wait(); err != nil {
			logger.Debug("http tail preload failed", "err", err)
		}
	}

	return hs, nil
}

func (hs *HTTPSource) Length() (int64, bool) { return hs.store.length() }

func (hs *HTTPSource) IsRangeAvailable(pos, n int64) bool { return hs.store.isRangeAvailable(pos, n) }

func (hs *HTTPSource) EnsureRange(pos, n int64) error {
	return hs.EnsureRangeContext(context.Background(), pos, n)
}

// EnsureRangeContext is EnsureRange with caller-supplied cancellation.
func (hs *HTTPSource) EnsureRangeContext(ctx context.Context, pos, n int64) error {
	total, known := hs.store.length()
	if known && (pos < 0 || pos+n > total) {
		return &IOError{Message: "range out of bounds"}
	}
	idxLo := hs.store.chunkIndex(pos)
	idxHi := hs.store.chunkIndex(pos + n - 1)
	for idx := idxLo; idx <= idxHi; idx++ {
		if hs.store.hasChunk(idx) {
			continue
		}
		if err := hs.loadChunk(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// loadChunk dedupes concurrent requests for the same chunk index via
// singleflight, so a prefetch and a parser read racing on the same range
// never issue two HTTP requests.
func (hs *HTTPSource) loadChunk(ctx context.Context, idx int64) error {
	key := strconv.FormatInt(idx, 10)
	_, err, _ := hs.group.Do(key, func() (interface{}, error) {
		if hs.store.hasChunk(idx) {
			return nil, nil
		}
		start := idx * hs.store.chunkSize
		length := hs.store.chunkSize
		if total, known := hs.store.length(); known && start+length > total {
			length = total - start
		}
		if length <= 0 {
			return nil, nil
		}
		data, _, _, err := hs.rangeGet(ctx, start, length)
		if err != nil {
			return nil, err
		}
		hs.store.put(idx, data)
		return nil, nil
	})
	return err
}

// rangeGet issues a single GET with a Range header and returns the body,
// the resource's total length (from Content-Range, 0 if unknown), and
// whether the server actually honored the range (206, as opposed to a
// 200 full-body fallback from a server that ignores Range).
func (hs *HTTPSource) rangeGet(ctx context.Context, start, length int64) ([]byte, int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hs.url, nil)
	if err != nil {
		return nil, 0, false, &IOError{Message: "building request", Err: err}
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, start+length-1))

	resp, err := hs.client.Do(req)
	if err != nil {
		return nil, 0, false, &IOError{Message: "range GET", Err: err}
	}
	defer resp.Body.Close()

	buf := make([]byte, 0, length)
	readBuf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(readBuf)
		if n > 0 {
			buf = append(buf, readBuf[:n]...)
		}
		if rerr != nil {
			if rerr != io.EOF {
				return nil, 0, false, &IOError{Message: "reading range response body", Err: rerr}
			}
			break
		}
	}

	var total int64
	accept := resp.StatusCode == http.StatusPartialContent
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if idx := strings.LastIndex(cr, "/"); idx >= 0 && idx+1 < len(cr) {
			if n, err := strconv.ParseInt(cr[idx+1:], 10, 64); err == nil {
				total = n
			}
		}
	} else if cl := resp.Header.Get("Content-Length"); cl != "" && !accept {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			total = n
		}
	}
	return buf, total, accept, nil
}

func (hs *HTTPSource) Slice(pos, n int64) ([]byte, error) { return hs.store.read(pos, n) }

func (hs *HTTPSource) GetByte(pos int64) (byte, error) { return hs.store.getByte(pos) }

func (hs *HTTPSource) Close() error { return nil }
