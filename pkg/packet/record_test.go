package packet

import (
	"testing"
	"time"

	"github.com/matzehuels/flowscope/pkg/errors"
)

func recordsAt(offsets ...int) []Record {
	out := make([]Record, len(offsets))
	for i, s := range offsets {
		out[i] = Record{SrcIP: "a", DstIP: "b", Timestamp: t0.Add(time.Duration(s) * time.Second)}
	}
	return out
}

func TestFilter(t *testing.T) {
	records := recordsAt(0, 10, 20, 30)

	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{name: "open", want: 4},
		{name: "from only", from: t0.Add(10 * time.Second), want: 3},
		{name: "to only", to: t0.Add(10 * time.Second), want: 2},
		{name: "inclusive window", from: t0.Add(10 * time.Second), to: t0.Add(20 * time.Second), want: 2},
		{name: "empty window", from: t0.Add(11 * time.Second), to: t0.Add(19 * time.Second), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Filter(records, tt.from, tt.to)
			if err != nil {
				t.Fatalf("Filter() error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len(Filter()) = %d, want %d", len(got), tt.want)
			}
		})
	}

	if len(records) != 4 {
		t.Error("Filter() must not modify its input")
	}
}

func TestFilterInvertedRange(t *testing.T) {
	_, err := Filter(recordsAt(0), t0.Add(time.Minute), t0)
	if !errors.Is(err, errors.ErrCodeInvalidRange) {
		t.Errorf("Filter() error = %v, want INVALID_RANGE", err)
	}
}

func TestSpan(t *testing.T) {
	first, last := Span(recordsAt(20, 0, 30, 10))
	if !first.Equal(t0) {
		t.Errorf("first = %v, want %v", first, t0)
	}
	if !last.Equal(t0.Add(30 * time.Second)) {
		t.Errorf("last = %v, want %v", last, t0.Add(30*time.Second))
	}

	first, last = Span(nil)
	if !first.IsZero() || !last.IsZero() {
		t.Error("Span(nil) should return zero times")
	}
}
