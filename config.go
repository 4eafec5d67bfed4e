package pdf

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// SourceConfig configures a ChunkedSource's chunking and LRU bounds.
type SourceConfig struct {
	ChunkSize       int64 `validate:"required,min=4096"`
	MaxCachedChunks int   `validate:"required,min=2"`
}

// DefaultSourceConfig returns the spec's defaults: 64 KiB chunks, 20 cached.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{ChunkSize: 65536, MaxCachedChunks: 20}
}

// CacheConfig bounds the object and page caches a Document keeps.
type CacheConfig struct {
	ObjectCacheCapacity int `validate:"required,min=1"`
	PageCacheCapacity   int `validate:"required,min=1"`
}

// DefaultCacheConfig returns the spec's default of 1000 entries each.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{ObjectCacheCapacity: 1000, PageCacheCapacity: 1000}
}

// ProgressFunc is invoked after each successful chunk load during open or
// any other range fetch, reporting cumulative bytes loaded and, when known,
// the total length of the source.
type ProgressFunc func(loadedBytes, totalBytes int64)

// OpenOptions configures a single Document.Open/OpenFile/OpenURL call. Every
// configuration knob in the core flows through this struct — there is no
// environment-variable configuration and no global state.
type OpenOptions struct {
	Source                   SourceConfig  `validate:"required"`
	Cache                    CacheConfig   `validate:"required"`
	MaxRefDepth              int           `validate:"required,min=1,max=1000"`
	MaxKidsDepth             int           `validate:"required,min=1,max=1000"`
	ReconstructOnCorruptXref bool
	HTTPTimeout              time.Duration `validate:"required"`
	Progress                 ProgressFunc
}

// DefaultOpenOptions returns the spec's documented defaults.
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{
		Source:                   DefaultSourceConfig(),
		Cache:                    DefaultCacheConfig(),
		MaxRefDepth:              32,
		MaxKidsDepth:             100,
		ReconstructOnCorruptXref: true,
		HTTPTimeout:              30 * time.Second,
	}
}

// Validate checks OpenOptions against its struct tags, mirroring the
// validate-on-use idiom the ambient config stack follows throughout.
func (o OpenOptions) Validate() error {
	return validator.New().Struct(o)
}

// TextExtractionOptions tunes the content extractor's word-break heuristics
// (spec Open Question: these are judgment calls, exposed rather than hidden).
type TextExtractionOptions struct {
	// KerningGapThreshold is the TJ numeric gap (in thousandths of an em)
	// at or below which a word break (single space) is inserted. Negative;
	// the signed adjustment is compared, so positive adjustments never
	// insert a space.
	KerningGapThreshold float64 `validate:"required"`
	// HalfEmGapFactor scales the current font size to decide the minimum
	// horizontal gap, in extract_text_as_string, that inserts a space.
	HalfEmGapFactor float64 `validate:"required,gt=0"`
	// BandTolerance is the maximum |Δy| (in points) for two items to be
	// considered part of the same horizontal line band.
	BandTolerance float64 `validate:"required,gt=0"`
}

// DefaultTextExtractionOptions returns the spec's documented constants.
func DefaultTextExtractionOptions() TextExtractionOptions {
	return TextExtractionOptions{
		KerningGapThreshold: -100,
		HalfEmGapFactor:     0.5,
		BandTolerance:       4,
	}
}

func (o TextExtractionOptions) Validate() error {
	return validator.New().Struct(o)
}
