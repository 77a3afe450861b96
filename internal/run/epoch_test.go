package run

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEpoch(t *testing.T) {
	var e Epoch
	assert.Equal(t, uint64(0), e.Current())

	first := e.Next()
	assert.True(t, e.IsCurrent(first))

	second := e.Next()
	assert.False(t, e.IsCurrent(first))
	assert.True(t, e.IsCurrent(second))
	assert.Equal(t, second, e.Current())
}

func TestEpoch_ConcurrentNext(t *testing.T) {
	var e Epoch
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Next()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(50), e.Current())
}
