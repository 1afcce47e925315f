package seatmap

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSelectionSetOrderAndDedup(t *testing.T) {
	s := NewSelectionSet("2B", "1A", "2B", "")
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"2B", "1A"}) {
		t.Fatalf("IDs = %v", got)
	}
	s.Apply(Toggle{SeatID: "3C"})
	s.Apply(Toggle{SeatID: "2B"})
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"1A", "3C"}) {
		t.Fatalf("after toggles IDs = %v", got)
	}
}

func TestSelectionSetJSON(t *testing.T) {
	var empty SelectionSet
	b, err := json.Marshal(empty)
	if err != nil || string(b) != "[]" {
		t.Fatalf("empty marshal = %s, %v", b, err)
	}

	var s SelectionSet
	if err := json.Unmarshal([]byte(`["5A","5A","1C"]`), &s); err != nil {
		t.Fatal(err)
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"5A", "1C"}) {
		t.Fatalf("IDs = %v", got)
	}
}
