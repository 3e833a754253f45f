package pool

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		limit int
		n     int
		want  int
	}{
		{"no inputs", 10, 0, 0},
		{"fewer inputs than limit", 10, 3, 3},
		{"more inputs than limit", 10, 250, 10},
		{"zero limit falls back to one", 0, 5, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Size(tc.limit, tc.n))
		})
	}
}

func TestMapKeepsOnlyOKResults(t *testing.T) {
	t.Parallel()

	inputs := []int{1, 2, 3, 4, 5, 6}
	got := Map(context.Background(), 3, inputs, func(_ context.Context, in int) (int, bool) {
		return in * 10, in%2 == 0
	}, nil)

	sort.Ints(got)
	require.Equal(t, []int{20, 40, 60}, got)
}

func TestMapNeverExceedsWorkerBound(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	inputs := make([]int, 40)
	got := Map(context.Background(), 4, inputs, func(_ context.Context, in int) (int, bool) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return in, true
	}, nil)

	require.Len(t, got, 40)
	assert.LessOrEqual(t, peak.Load(), int32(4))
	assert.Positive(t, peak.Load())
}

func TestMapReturnsCompletionOrder(t *testing.T) {
	t.Parallel()

	// The first input finishes last, so it must be the last result.
	inputs := []int{0, 1, 2}
	got := Map(context.Background(), 3, inputs, func(_ context.Context, in int) (int, bool) {
		if in == 0 {
			time.Sleep(50 * time.Millisecond)
		}
		return in, true
	}, nil)

	require.Len(t, got, 3)
	assert.Equal(t, 0, got[2])
}

func TestMapRecoversPanics(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var panicked []string
	got := Map(context.Background(), 2, []string{"a", "boom", "c"}, func(_ context.Context, in string) (string, bool) {
		if in == "boom" {
			panic("exploded")
		}
		return in, true
	}, func(in string, err error) {
		mu.Lock()
		defer mu.Unlock()
		panicked = append(panicked, in)
		assert.ErrorContains(t, err, "exploded")
	})

	sort.Strings(got)
	assert.Equal(t, []string{"a", "c"}, got)
	assert.Equal(t, []string{"boom"}, panicked)
}

func TestMapNoInputs(t *testing.T) {
	t.Parallel()

	called := false
	got := Map(context.Background(), 5, nil, func(_ context.Context, in int) (int, bool) {
		called = true
		return in, true
	}, nil)
	assert.Nil(t, got)
	assert.False(t, called)
}
