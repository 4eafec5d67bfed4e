package pdf

// MemorySource is a ChunkedSource over bytes already fully resident in
// memory. Every range is available immediately; it exists so callers that
// already hold the whole document (tests, small files) can skip the
// chunked-loading machinery without a second code path in the parser.
type MemorySource struct {
	data []byte
}

// NewMemorySource wraps data as a ChunkedSource. data is not copied; the
// caller must not mutate it afterward.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

func (m *MemorySource) Length() (int64, bool) { return int64(len(m.data)), true }

func (m *MemorySource) IsRangeAvailable(pos, n int64) bool {
	if n <= 0 {
		return pos >= 0
	}
	return pos >= 0 && pos+n <= int64(len(m.data))
}

func (m *MemorySource) EnsureRange(pos, n int64) error {
	if !m.IsRangeAvailable(pos, n) {
		return &DataMissing{Pos: pos, Len: n}
	}
	return nil
}

func (m *MemorySource) Slice(pos, n int64) ([]byte, error) {
	if !m.IsRangeAvailable(pos, n) {
		return nil, &DataMissing{Pos: pos, Len: n}
	}
	return m.data[pos : pos+n], nil
}

func (m *MemorySource) GetByte(pos int64) (byte, error) {
	if pos < 0 || pos >= int64(len(m.data)) {
		return 0, &DataMissing{Pos: pos, Len: 1}
	}
	return m.data[pos], nil
}

func (m *MemorySource) Close() error { return nil }
