package transfer

import (
	"fmt"
	"iter"
)

const (
	// ChunkAlignment is the granularity the upload session protocol requires
	// for every chunk except the last.
	ChunkAlignment = 320 * 1024

	// MaxChunkSize is the largest chunk the service accepts in one PUT.
	MaxChunkSize = 60 * 1024 * 1024

	// DefaultChunkSize is 100 aligned units, about 31 MiB.
	DefaultChunkSize = 100 * ChunkAlignment
)

// Chunk is one contiguous byte range of a file sent in a single PUT.
type Chunk struct {
	Offset int64
	Length int64
	Total  int64
}

// End returns the inclusive offset of the chunk's last byte.
func (c Chunk) End() int64 { return c.Offset + c.Length - 1 }

// Last reports whether the chunk ends at the end of the file.
func (c Chunk) Last() bool { return c.Offset+c.Length == c.Total }

// ContentRange renders the Content-Range header value for the chunk.
func (c Chunk) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", c.Offset, c.End(), c.Total)
}

// ValidateChunkSize checks that size is a positive multiple of
// ChunkAlignment no larger than MaxChunkSize.
func ValidateChunkSize(size int64) error {
	switch {
	case size <= 0:
		return fmt.Errorf("chunk size %d must be positive: %w", size, ErrInvalidInput)
	case size%ChunkAlignment != 0:
		return fmt.Errorf("chunk size %d is not a multiple of %d: %w", size, ChunkAlignment, ErrInvalidInput)
	case size > MaxChunkSize:
		return fmt.Errorf("chunk size %d exceeds %d: %w", size, MaxChunkSize, ErrInvalidInput)
	}

	return nil
}

// ChunkPlan describes how [start, total) is split into chunks. It holds no
// iteration state, so All can be ranged over any number of times.
type ChunkPlan struct {
	total     int64
	chunkSize int64
	start     int64
}

// PlanChunks plans the chunks covering a file of total bytes.
func PlanChunks(total, chunkSize int64) (ChunkPlan, error) {
	if err := ValidateChunkSize(chunkSize); err != nil {
		return ChunkPlan{}, err
	}

	if total < 0 {
		return ChunkPlan{}, fmt.Errorf("total size %d must not be negative: %w", total, ErrInvalidInput)
	}

	return ChunkPlan{total: total, chunkSize: chunkSize}, nil
}

// From returns the plan for the bytes remaining after offset, used when
// resuming a session the service has accepted offset bytes of.
func (p ChunkPlan) From(offset int64) (ChunkPlan, error) {
	if offset < 0 || offset > p.total {
		return ChunkPlan{}, fmt.Errorf("resume offset %d outside [0, %d]: %w", offset, p.total, ErrInvalidInput)
	}

	p.start = offset

	return p, nil
}

// Total returns the file size the plan covers.
func (p ChunkPlan) Total() int64 { return p.total }

// Start returns the offset of the first planned chunk.
func (p ChunkPlan) Start() int64 { return p.start }

// Count returns the number of chunks All yields.
func (p ChunkPlan) Count() int64 {
	remaining := p.total - p.start
	if remaining <= 0 {
		return 0
	}

	return (remaining + p.chunkSize - 1) / p.chunkSize
}

// All yields the planned chunks in ascending offset order. Every chunk is
// chunkSize long except possibly the last.
func (p ChunkPlan) All() iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for off := p.start; off < p.total; off += p.chunkSize {
			length := min(p.chunkSize, p.total-off)
			if !yield(Chunk{Offset: off, Length: length, Total: p.total}) {
				return
			}
		}
	}
}
