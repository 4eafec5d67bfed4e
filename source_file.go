package pdf

import (
	"io"
	"os"
)

// FileSource is a ChunkedSource backed by an *os.File, loading chunks on
// demand through the shared chunkStore LRU rather than holding the whole
// file in memory. A local file's length is known up front, unlike the
// network-backed HTTPSource.
type FileSource struct {
	f     *os.File
	store *chunkStore
}

// OpenFileSource opens path and wraps it as a ChunkedSource, using cfg for
// chunk size and cache bounds.
func OpenFileSource(path string, cfg SourceConfig, progress ProgressFunc) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Message: "opening " + path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Message: "stat " + path, Err: err}
	}
	store := newChunkStore(cfg.ChunkSize, cfg.MaxCachedChunks, progress)
	store.setLength(info.Size())
	return &FileSource{f: f, store: store}, nil
}

func (fs *FileSource) Length() (int64, bool) { return fs.store.length() }

func (fs *FileSource) IsRangeAvailable(pos, n int64) bool { return fs.store.isRangeAvailable(pos, n) }

func (fs *FileSource) EnsureRange(pos, n int64) error {
	total, _ := fs.store.length()
	if pos < 0 || pos+n > total {
		return &IOError{Message: "range out of bounds"}
	}
	idxLo := fs.store.chunkIndex(pos)
	idxHi := fs.store.chunkIndex(pos + n - 1)
	for idx := idxLo; idx <= idxHi; idx++ {
		if fs.store.hasChunk(idx) {
			continue
		}
		if err := fs.loadChunk(idx); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileSource) loadChunk(idx int64) error {
	total, _ := fs.store.length()
	start := idx * fs.store.chunkSize
	end := start + fs.store.chunkSize
	if end > total {
		end = total
	}
	if start >= end {
		return nil
	}
	buf := make([]byte, end-start)
	if _, err := fs.f.ReadAt(buf, start); err != nil && err != io.EOF {
		return &IOError{Message: "reading file", Err: err}
	}
	fs.store.put(idx, buf)
	return nil
}

func (fs *FileSource) Slice(pos, n int64) ([]byte, error) { return fs.store.read(pos, n) }

func (fs *FileSource) GetByte(pos int64) (byte, error) { return fs.store.getByte(pos) }

func (fs *FileSource) Close() error { return fs.f.Close() }
