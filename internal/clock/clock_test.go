package clock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogicalAdvance(t *testing.T) {
	c := NewLogical(10)
	assert.Equal(t, uint64(10), c.Now())
	assert.Equal(t, uint64(12), c.Advance(2))
	assert.Equal(t, uint64(12), c.Now())
}

func TestLogicalConcurrentAdvance(t *testing.T) {
	c := NewLogical(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(50), c.Now())
}
