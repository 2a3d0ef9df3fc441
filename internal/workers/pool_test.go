package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	ForEach(context.Background(), 3, items, func(context.Context, int) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, int32(0), inFlight.Load())
}

func TestForEachRecoversPanic(t *testing.T) {
	var done atomic.Int32
	ForEach(context.Background(), 2, []int{1, 2, 3}, func(_ context.Context, i int) {
		if i == 2 {
			panic("boom")
		}
		done.Add(1)
	})
	assert.Equal(t, int32(2), done.Load())
}

func TestCollectIsolatesErrors(t *testing.T) {
	var mu sync.Mutex
	failed := map[string]error{}

	res := Collect(context.Background(), 4, []string{"a", "bad", "c"},
		func(_ context.Context, s string) ([]string, error) {
			if s == "bad" {
				return nil, errors.New("unreachable")
			}
			return []string{s, s}, nil
		},
		func(s string, err error) {
			mu.Lock()
			failed[s] = err
			mu.Unlock()
		})

	require.Len(t, res, 3)
	assert.Equal(t, []string{"a", "a"}, res[0])
	assert.Nil(t, res[1])
	assert.Equal(t, []string{"c", "c"}, res[2])
	assert.EqualError(t, failed["bad"], "unreachable")
}

func TestCollectTurnsPanicIntoError(t *testing.T) {
	var got error
	Collect(context.Background(), 1, []int{1}, func(context.Context, int) ([]int, error) {
		panic("nil map")
	}, func(_ int, err error) { got = err })
	assert.EqualError(t, got, "panic: nil map")
}
