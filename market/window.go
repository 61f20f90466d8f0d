package market

// MarkerKind tells entry markers from exit markers on a chart.
type MarkerKind string

const (
	MarkerEntry MarkerKind = "entry"
	MarkerExit  MarkerKind = "exit"
)

// Marker pins a trade event to a sample of the price window.
// Index is relative to the oldest surviving sample.
type Marker struct {
	Index int        `json:"index"`
	Price float64    `json:"price"`
	Kind  MarkerKind `json:"kind"`
}

// Window is a fixed-capacity FIFO of prices with markers that scroll with it.
type Window struct {
	capacity int
	prices   []float64
	markers  []Marker
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		prices:   make([]float64, 0, capacity),
	}
}

// Push appends a price, evicting the oldest sample when full. Markers are
// shifted on eviction and dropped once they scroll out.
func (w *Window) Push(price float64) (evicted bool) {
	if len(w.prices) >= w.capacity {
		copy(w.prices, w.prices[1:])
		w.prices = w.prices[:len(w.prices)-1]
		evicted = true
	}
	w.prices = append(w.prices, price)

	if evicted {
		kept := w.markers[:0]
		for _, m := range w.markers {
			m.Index--
			if m.Index >= 0 {
				kept = append(kept, m)
			}
		}
		w.markers = kept
	}
	return evicted
}

// Mark records a marker on the newest sample.
func (w *Window) Mark(kind MarkerKind, price float64) {
	if len(w.prices) == 0 {
		return
	}
	w.markers = append(w.markers, Marker{Index: len(w.prices) - 1, Price: price, Kind: kind})
}

// Reset drops all samples and markers.
func (w *Window) Reset() {
	w.prices = w.prices[:0]
	w.markers = nil
}

func (w *Window) Len() int { return len(w.prices) }

func (w *Window) Cap() int { return w.capacity }

// Last returns the newest sample.
func (w *Window) Last() (float64, bool) {
	if len(w.prices) == 0 {
		return 0, false
	}
	return w.prices[len(w.prices)-1], true
}

// Prices returns a copy of the samples, oldest first.
func (w *Window) Prices() []float64 {
	out := make([]float64, len(w.prices))
	copy(out, w.prices)
	return out
}

// Markers returns a copy of the live markers.
func (w *Window) Markers() []Marker {
	out := make([]Marker, len(w.markers))
	copy(out, w.markers)
	return out
}
