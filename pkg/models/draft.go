package models

import "time"

// CrewDraft is the in-progress crew collected by the creation/edit wizard.
// It is kept in the chat session only and converted to a Crew at save time,
// so a half-finished wizard never touches storage.
type CrewDraft struct {
	CrewID      int64 // 0 while creating, the edited crew id otherwise
	DepartureID int64
	DriverID    int64

	Title          string
	PickupLocation Point
	PassengersMax  int
	PickupDate     time.Time
	PickupClock    string // "15:04", combined with PickupDate at save time
}

// Crew materializes the draft into a persistable crew record.
func (d *CrewDraft) Crew(loc *time.Location) (*Crew, error) {
	clock, err := time.Parse("15:04", d.PickupClock)
	if err != nil {
		return nil, err
	}

	pickup := time.Date(
		d.PickupDate.Year(), d.PickupDate.Month(), d.PickupDate.Day(),
		clock.Hour(), clock.Minute(), 0, 0, loc,
	)

	return &Crew{
		ID:             d.CrewID,
		DepartureID:    d.DepartureID,
		Title:          d.Title,
		DriverID:       d.DriverID,
		PickupLocation: d.PickupLocation,
		PickupDatetime: pickup.UTC(),
		PassengersMax:  d.PassengersMax,
		Status:         CrewStatusAvailable,
	}, nil
}
