package seatmap

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"
)

func TestOverlay(t *testing.T) {
	base := Generate(Compact)

	t.Run("empty reservation list", func(t *testing.T) {
		for _, s := range Overlay(base, nil) {
			if s.State != Available {
				t.Fatalf("seat %s = %s, want available", s.ID, s.State)
			}
		}
	})

	t.Run("all reserved", func(t *testing.T) {
		for _, s := range Overlay(base, IDs(Compact)) {
			if !s.Occupied() {
				t.Fatalf("seat %s not occupied", s.ID)
			}
		}
	})

	t.Run("subset", func(t *testing.T) {
		out := Overlay(base, []string{"9B", "3C", "nope"})
		if got := OccupiedIDs(out); !reflect.DeepEqual(got, []string{"3C", "9B"}) {
			t.Fatalf("occupied = %v, want [3C 9B]", got)
		}
	})

	t.Run("ignores prior state and keeps input intact", func(t *testing.T) {
		in := Overlay(base, []string{"1A"})
		out := Overlay(in, []string{"2A"})
		if got := OccupiedIDs(out); !reflect.DeepEqual(got, []string{"2A"}) {
			t.Fatalf("occupied = %v, want [2A]", got)
		}
		if !in[0].Occupied() {
			t.Fatal("Overlay mutated its input")
		}
	})
}

func TestOverlayRandomSubsets(t *testing.T) {
	rng := rand.New(rand.NewPCG(20261015, 45))
	for _, class := range []CapacityClass{Compact, Standard} {
		base := Generate(class)
		ids := IDs(class)
		for i := 0; i < 200; i++ {
			var reserved []string
			for _, id := range ids {
				if rng.IntN(3) == 0 {
					reserved = append(reserved, id)
				}
			}
			rng.Shuffle(len(reserved), func(a, b int) { reserved[a], reserved[b] = reserved[b], reserved[a] })

			out := Overlay(base, reserved)
			if len(out) != len(base) {
				t.Fatalf("%s: %d seats after overlay, want %d", class, len(out), len(base))
			}
			for j := range out {
				if out[j].ID != base[j].ID || out[j].Row != base[j].Row {
					t.Fatalf("%s: seat %d is %s, want %s", class, j, out[j].ID, base[j].ID)
				}
				if out[j].Occupied() != slices.Contains(reserved, out[j].ID) {
					t.Fatalf("%s: seat %s occupied=%v with reserved %v", class, out[j].ID, out[j].Occupied(), reserved)
				}
			}
			got := slices.Sorted(slices.Values(OccupiedIDs(out)))
			want := slices.Sorted(slices.Values(reserved))
			if !slices.Equal(got, want) {
				t.Fatalf("%s: occupied = %v, want %v", class, got, want)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Generate(Standard), Standard); err != nil {
		t.Fatalf("generated topology invalid: %v", err)
	}

	dup := Generate(Compact)
	dup[1].ID = dup[0].ID
	moved := Generate(Compact)
	moved[0].Col = 3
	tests := []struct {
		name  string
		seats []Seat
		class CapacityClass
	}{
		{"wrong class", Generate(Compact), Standard},
		{"truncated", Generate(Compact)[:27], Compact},
		{"duplicate id", dup, Compact},
		{"seat in aisle", moved, Compact},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.seats, tt.class); !errors.Is(err, ErrTopologyMismatch) {
				t.Fatalf("err = %v, want ErrTopologyMismatch", err)
			}
		})
	}
}
