package models

import (
	"testing"
	"time"
)

func TestDraftCrew(t *testing.T) {
	loc := time.FixedZone("user", 3*3600)
	d := &CrewDraft{
		DepartureID:    7,
		DriverID:       3,
		Title:          "Alpha",
		PickupLocation: Point{Lat: 55.75, Lon: 37.61},
		PassengersMax:  4,
		PickupDate:     time.Date(2024, time.March, 1, 0, 0, 0, 0, loc),
		PickupClock:    "09:30",
	}

	crew, err := d.Crew(loc)
	if err != nil {
		t.Fatalf("Crew() error: %v", err)
	}

	if crew.ID != 0 {
		t.Errorf("new draft produced crew id %d, want 0", crew.ID)
	}
	if crew.Status != CrewStatusAvailable {
		t.Errorf("Status = %q, want %q", crew.Status, CrewStatusAvailable)
	}

	// 09:30 at UTC+3 is 06:30 UTC.
	want := time.Date(2024, time.March, 1, 6, 30, 0, 0, time.UTC)
	if !crew.PickupDatetime.Equal(want) {
		t.Errorf("PickupDatetime = %v, want %v", crew.PickupDatetime, want)
	}
}

func TestDraftCrewBadClock(t *testing.T) {
	d := &CrewDraft{PickupClock: "later"}
	if _, err := d.Crew(time.UTC); err == nil {
		t.Error("expected an error for an unparseable clock")
	}
}
