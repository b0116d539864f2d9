package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedBusPublishSubscribe(t *testing.T) {
	bus := NewTyped[string]()
	ch := bus.Subscribe()
	bus.Publish("hello")
	assert.Equal(t, "hello", <-ch)
	bus.Unsubscribe(ch)
}

func TestTypedBusDefaultBuffer(t *testing.T) {
	bus := NewTypedWithBuffer[int](0)
	ch := bus.Subscribe()
	assert.Equal(t, DefaultBuffer, cap(ch))
}

func TestTypedBusClose(t *testing.T) {
	bus := NewTyped[int]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	_, ok := <-ch1
	assert.False(t, ok)
	_, ok = <-ch2
	assert.False(t, ok)
}
