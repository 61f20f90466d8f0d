package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capacity int
		pushes   []float64
		want     []float64
	}{
		{name: "under capacity", capacity: 4, pushes: []float64{1, 2}, want: []float64{1, 2}},
		{name: "exactly full", capacity: 3, pushes: []float64{1, 2, 3}, want: []float64{1, 2, 3}},
		{name: "evicts oldest", capacity: 3, pushes: []float64{1, 2, 3, 4, 5}, want: []float64{3, 4, 5}},
		{name: "zero capacity keeps one", capacity: 0, pushes: []float64{1, 2}, want: []float64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(tt.capacity)
			for _, p := range tt.pushes {
				w.Push(p)
			}
			assert.Equal(t, tt.want, w.Prices())
			assert.LessOrEqual(t, w.Len(), w.Cap())

			last, ok := w.Last()
			assert.True(t, ok)
			assert.Equal(t, tt.want[len(tt.want)-1], last)
		})
	}
}

func TestWindowMarkOnEmptyIsNoop(t *testing.T) {
	t.Parallel()

	w := NewWindow(2)
	w.Mark(MarkerEntry, 1)
	assert.Empty(t, w.Markers())

	_, ok := w.Last()
	assert.False(t, ok)
}

func TestWindowCopiesAreDetached(t *testing.T) {
	t.Parallel()

	w := NewWindow(2)
	w.Push(1)
	w.Mark(MarkerEntry, 1)

	prices := w.Prices()
	prices[0] = 99
	markers := w.Markers()
	markers[0].Price = 99

	assert.Equal(t, []float64{1}, w.Prices())
	assert.Equal(t, 1.0, w.Markers()[0].Price)

	w.Reset()
	assert.Zero(t, w.Len())
	assert.Empty(t, w.Markers())
}
