package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Broadcast(t *testing.T) {
	n := New()
	a := n.Subscribe()
	b := n.Subscribe()
	defer n.Unsubscribe(a)
	defer n.Unsubscribe(b)

	sent := n.Broadcast("events.csv")
	assert.Equal(t, uint64(1), sent.Seq)

	for _, ch := range []chan Change{a, b} {
		select {
		case got := <-ch:
			assert.Equal(t, "events.csv", got.Path)
			assert.Equal(t, sent.Seq, got.Seq)
		case <-time.After(time.Second):
			t.Fatal("listener did not receive change")
		}
	}
}

func TestNotifier_SlowListenerKeepsFirstChange(t *testing.T) {
	n := New()
	ch := n.Subscribe()
	defer n.Unsubscribe(ch)

	n.Broadcast("a")
	n.Broadcast("b")

	got := <-ch
	assert.Equal(t, "a", got.Path)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected second change %+v", extra)
	default:
	}
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := New()
	ch := n.Subscribe()
	require.Equal(t, 1, n.Listeners())

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Listeners())
	_, open := <-ch
	assert.False(t, open)

	// Second unsubscribe must not panic on a closed channel.
	n.Unsubscribe(ch)
	n.Broadcast("after")
}

func TestNotifier_Concurrent(t *testing.T) {
	n := New()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := n.Subscribe()
			n.Broadcast("x")
			n.Unsubscribe(ch)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, n.Listeners())
}
