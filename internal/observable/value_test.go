package observable

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueSubscribeReceivesCurrentAndUpdates(t *testing.T) {
	v := NewValue(1)

	var got []int
	unsubscribe := v.Subscribe(func(n int) { got = append(got, n) })
	v.Set(2)
	v.Update(func(n int) int { return n * 10 })
	unsubscribe()
	v.Set(99)

	assert.Equal(t, []int{1, 2, 20}, got)
	assert.Equal(t, 99, v.Get())
}

func TestValueConcurrentUpdate(t *testing.T) {
	v := NewValue(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, v.Get())
}
