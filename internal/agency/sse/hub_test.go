package sse

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHubRoutesByProject(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	a := &Client{ID: "a", ProjectID: "p1", Events: make(chan Event, 4)}
	b := &Client{ID: "b", ProjectID: "p2", Events: make(chan Event, 4)}
	hub.Register(a)
	hub.Register(b)
	require.Equal(t, 2, hub.Count())

	hub.PublishProject("p1", "project_update", map[string]string{"action": "status_changed"})

	select {
	case ev := <-a.Events:
		assert.Equal(t, "project_update", ev.EventType)
		assert.JSONEq(t, `{"action":"status_changed"}`, ev.Data)
	default:
		t.Fatal("expected event for p1 subscriber")
	}
	assert.Len(t, b.Events, 0)

	hub.Unregister("a")
	hub.Unregister("a")
	_, open := <-a.Events
	assert.False(t, open)
	assert.Equal(t, 1, hub.Count())

	hub.Close()
	assert.Equal(t, 0, hub.Count())
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	c := &Client{ID: "c", ProjectID: "p", Events: make(chan Event, 1)}
	hub.Register(c)
	defer hub.Close()

	hub.PublishProject("p", "x", 1)
	hub.PublishProject("p", "x", 2)
	assert.Len(t, c.Events, 1)
}

func TestHubConcurrentReaders(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	var wg sync.WaitGroup
	received := make([]int, 3)
	for i := 0; i < 3; i++ {
		c := &Client{ID: string(rune('a' + i)), ProjectID: "p", Events: make(chan Event, 8)}
		hub.Register(c)
		wg.Add(1)
		go func(i int, c *Client) {
			defer wg.Done()
			for range c.Events {
				received[i]++
			}
		}(i, c)
	}

	for i := 0; i < 5; i++ {
		hub.PublishProject("p", "tick", i)
	}
	hub.Close()
	wg.Wait()

	for _, n := range received {
		assert.Equal(t, 5, n)
	}
}
