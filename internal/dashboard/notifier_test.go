package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifierKeepsLatest(t *testing.T) {
	n := NewNotifier[int]()
	ch := n.Subscribe()

	n.Publish(1)
	n.Publish(2)
	n.Publish(3)

	assert.Equal(t, 3, <-ch)
	assert.Equal(t, 2, n.Skipped())

	n.CancelSubscription(ch)
	_, ok := <-ch
	assert.False(t, ok)
	n.Publish(4)
}

func TestNotifierClose(t *testing.T) {
	n := NewNotifier[string]()
	a, b := n.Subscribe(), n.Subscribe()
	n.Publish("x")
	n.Close()

	assert.Equal(t, "x", <-a)
	assert.Equal(t, "x", <-b)
	_, ok := <-a
	assert.False(t, ok)

	late := n.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
	n.Close()
}
