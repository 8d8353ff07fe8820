package notify

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHistory_EvictsOldestFirst(t *testing.T) {
	t.Parallel()
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Insert(Event{ID: strconv.Itoa(i), Category: CategorySignal})
	}

	got := h.All()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"5", "4", "3"}, ids(got))
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3, h.Cap())
}

func TestHistory_DefaultCapacity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultHistoryCapacity, NewHistory(0).Cap())
	assert.Equal(t, DefaultHistoryCapacity, NewHistory(-4).Cap())
}

func TestHistory_ClearEmpties(t *testing.T) {
	t.Parallel()
	h := NewHistory(2)
	h.Insert(Event{ID: "a"})
	h.Insert(Event{ID: "b"})
	h.Clear()
	assert.Empty(t, h.All())
	assert.Equal(t, 0, h.Len())

	h.Insert(Event{ID: "c"})
	assert.Equal(t, []string{"c"}, ids(h.All()))
}

func TestHistory_AllIsIndependentCopy(t *testing.T) {
	t.Parallel()
	h := NewHistory(4)
	h.Insert(Event{ID: "a", Meta: map[string]string{"k": "v"}})

	out := h.All()
	out[0].ID = "mutated"
	out[0].Meta["k"] = "mutated"

	again := h.All()
	assert.Equal(t, "a", again[0].ID)
	assert.Equal(t, "v", again[0].Meta["k"])
}

func TestHistory_BoundedProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 150).Draw(rt, "capacity")
		n := rapid.IntRange(0, 400).Draw(rt, "inserts")

		h := NewHistory(capacity)
		for i := 0; i < n; i++ {
			h.Insert(Event{ID: strconv.Itoa(i)})
		}

		got := h.All()
		want := min(n, capacity)
		if len(got) != want {
			rt.Fatalf("len = %d, want %d", len(got), want)
		}
		for i, e := range got {
			if e.ID != strconv.Itoa(n-1-i) {
				rt.Fatalf("position %d holds %s, want %d", i, e.ID, n-1-i)
			}
		}
	})
}

func ids(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
