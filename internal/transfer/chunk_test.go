package transfer

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChunkSize(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateChunkSize(ChunkAlignment))
	assert.NoError(t, ValidateChunkSize(DefaultChunkSize))
	assert.NoError(t, ValidateChunkSize(MaxChunkSize))

	for _, bad := range []int64{0, -ChunkAlignment, ChunkAlignment + 1, 1000, MaxChunkSize + ChunkAlignment} {
		assert.ErrorIs(t, ValidateChunkSize(bad), ErrInvalidInput, "size %d", bad)
	}
}

func TestPlanChunks_CoversRangeExactly(t *testing.T) {
	t.Parallel()

	sizes := []int64{1, ChunkAlignment - 1, ChunkAlignment, ChunkAlignment + 1, 5 * ChunkAlignment, 7*ChunkAlignment + 12345}
	chunkSizes := []int64{ChunkAlignment, 2 * ChunkAlignment, 3 * ChunkAlignment}

	for _, total := range sizes {
		for _, cs := range chunkSizes {
			plan, err := PlanChunks(total, cs)
			require.NoError(t, err)

			chunks := slices.Collect(plan.All())
			require.Len(t, chunks, int((total+cs-1)/cs), "total=%d chunk=%d", total, cs)
			assert.Equal(t, int64(len(chunks)), plan.Count())

			var next int64
			for i, c := range chunks {
				assert.Equal(t, next, c.Offset, "chunk %d contiguous", i)
				assert.Positive(t, c.Length)
				assert.Equal(t, total, c.Total)

				if i < len(chunks)-1 {
					assert.Equal(t, cs, c.Length)
					assert.False(t, c.Last())
				}

				next = c.Offset + c.Length
			}

			assert.Equal(t, total, next)
			assert.True(t, chunks[len(chunks)-1].Last())
		}
	}
}

func TestPlanChunks_LastChunkRemainder(t *testing.T) {
	t.Parallel()

	plan, err := PlanChunks(2*ChunkAlignment+100, ChunkAlignment)
	require.NoError(t, err)

	chunks := slices.Collect(plan.All())
	require.Len(t, chunks, 3)
	assert.Equal(t, int64(100), chunks[2].Length)
	assert.Equal(t, "bytes 655360-655459/655460", chunks[2].ContentRange())
}

func TestPlanChunks_ZeroTotal(t *testing.T) {
	t.Parallel()

	plan, err := PlanChunks(0, ChunkAlignment)
	require.NoError(t, err)
	assert.Zero(t, plan.Count())
	assert.Empty(t, slices.Collect(plan.All()))
}

func TestPlanChunks_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := PlanChunks(10, 1000)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = PlanChunks(-1, ChunkAlignment)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChunkPlan_Restartable(t *testing.T) {
	t.Parallel()

	plan, err := PlanChunks(3*ChunkAlignment, ChunkAlignment)
	require.NoError(t, err)

	first := slices.Collect(plan.All())
	second := slices.Collect(plan.All())
	assert.Equal(t, first, second)

	// Early break leaves nothing behind.
	for range plan.All() {
		break
	}

	assert.Len(t, slices.Collect(plan.All()), 3)
}

func TestChunkPlan_From(t *testing.T) {
	t.Parallel()

	plan, err := PlanChunks(5*ChunkAlignment, ChunkAlignment)
	require.NoError(t, err)

	resumed, err := plan.From(2 * ChunkAlignment)
	require.NoError(t, err)
	assert.Equal(t, int64(3), resumed.Count())

	chunks := slices.Collect(resumed.All())
	assert.Equal(t, int64(2*ChunkAlignment), chunks[0].Offset)

	done, err := plan.From(5 * ChunkAlignment)
	require.NoError(t, err)
	assert.Zero(t, done.Count())

	_, err = plan.From(6 * ChunkAlignment)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = plan.From(-1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
