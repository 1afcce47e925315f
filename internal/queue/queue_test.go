package queue

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestWriteLine(t *testing.T) {
	ev := NewReservationEvent(EventCancelled, 4, 10, 1, "admin", "2026-03-01", []string{"9B", "3C"})
	ev.BusNumber = "B-17"
	var buf bytes.Buffer
	if err := writeLine(&buf, ev); err != nil {
		t.Fatal(err)
	}
	line := buf.String()
	for _, want := range []string{"Reservation cancelled", "bus_id=4", `bus="B-17"`, "by=1 (admin)", "seats=[9B,3C]"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q lacks %q", line, want)
		}
	}
	if _, err := uuid.Parse(ev.EventID); err != nil {
		t.Errorf("event id %q is not a UUID", ev.EventID)
	}
}

func TestHandleAppends(t *testing.T) {
	c := &Consumer{LogPath: filepath.Join(t.TempDir(), "nested", "reservation.log")}
	body, _ := json.Marshal(NewReservationEvent(EventConfirmed, 1, 2, 2, "user", "2026-03-01", []string{"1A"}))
	for i := 0; i < 2; i++ {
		if err := c.handle(body); err != nil {
			t.Fatal(err)
		}
	}
	b, err := os.ReadFile(c.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(b), "Reservation confirmed"); n != 2 {
		t.Fatalf("%d lines written, want 2", n)
	}
	if err := c.handle([]byte("{not json")); err == nil {
		t.Fatal("bad payload accepted")
	}
}
