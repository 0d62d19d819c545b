package location

import (
	"slices"
	"testing"
)

func TestRangeLocation(t *testing.T) {
	loc := NewRange(3, 8)
	if loc.Materialized() {
		t.Error("range location reported as materialized")
	}
	if got := loc.Size(); got != 5 {
		t.Errorf("Size() = %d, want 5", got)
	}
	if loc.Positions() != nil {
		t.Error("range location exposed positions")
	}
}

func TestEmptyMatchingsAreMaterialized(t *testing.T) {
	loc := NewMatchings(nil, 2)
	if !loc.Materialized() {
		t.Fatal("empty result must still count as materialized")
	}
	if !loc.Empty() {
		t.Error("Empty() = false for no occurrences")
	}
}

func TestSharedBufferIsNotCopied(t *testing.T) {
	buf := NewBuffer([]int{1, 4, 7, 9})
	a := Shared(buf, 2)
	b := Shared(buf, 2)
	if a.Matchings != b.Matchings {
		t.Fatal("shared locations hold different buffers")
	}
	if &a.Positions()[0] != &b.Positions()[0] {
		t.Error("positions were copied")
	}
	if got := a.Size(); got != 2 {
		t.Errorf("Size() = %d, want 2", got)
	}
	if !a.Equal(b) {
		t.Error("Equal() = false for the same buffer")
	}
	if a.Equal(NewMatchings([]int{1, 4, 7, 10}, 2)) {
		t.Error("Equal() = true for different tuples")
	}
}

func TestMatchingMerge(t *testing.T) {
	positions := []int{2, 5, 6, 9, 11, 12}
	tests := []struct {
		name           string
		left, right    Matching
		numSubpatterns int
		want           []int
	}{
		{
			name:           "gap between single chunks",
			left:           NewMatching(positions, 0, 1, 0),
			right:          NewMatching(positions, 1, 1, 0),
			numSubpatterns: 2,
			want:           []int{2, 5},
		},
		{
			name:           "suffix adds a chunk",
			left:           NewMatching(positions, 0, 2, 0),
			right:          NewMatching(positions, 1, 2, 0),
			numSubpatterns: 3,
			want:           []int{2, 5, 6},
		},
		{
			name:           "suffix extends the last chunk",
			left:           NewMatching(positions, 0, 2, 0),
			right:          NewMatching(positions, 1, 1, 0),
			numSubpatterns: 2,
			want:           []int{2, 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.left.Merge(tt.right, tt.numSubpatterns); !slices.Equal(got, tt.want) {
				t.Errorf("Merge() = %v, want %v", got, tt.want)
			}
			if got := tt.left.AppendMerge(nil, tt.right, tt.numSubpatterns); !slices.Equal(got, tt.want) {
				t.Errorf("AppendMerge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchingViewCannotGrowIntoBuffer(t *testing.T) {
	positions := []int{1, 2, 3, 4}
	m := NewMatching(positions, 0, 2, 0)
	_ = append(m.Positions, 99)
	if positions[2] != 3 {
		t.Error("appending to a matching view overwrote the shared buffer")
	}
}
