package inflight

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	set := NewSet()

	release, ok := set.Acquire("a")
	require.True(t, ok)
	assert.True(t, set.Held("a"))

	_, ok = set.Acquire("a")
	assert.False(t, ok, "second acquire of a held key should fail")

	other, ok := set.Acquire("b")
	require.True(t, ok, "keys are independent")
	other()

	release()
	release() // idempotent
	assert.False(t, set.Held("a"))
	assert.Equal(t, 0, set.Len())

	_, ok = set.Acquire("a")
	assert.True(t, ok)
}

func TestAcquireConcurrent(t *testing.T) {
	set := NewSet()

	var (
		wg      sync.WaitGroup
		winners int32
		start   = make(chan struct{})
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := set.Acquire("session"); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}
