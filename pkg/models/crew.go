package models

import "time"

const (
	CrewStatusAvailable = "available"
	CrewStatusOnMission = "on_mission"
	CrewStatusReturning = "returning"
	CrewStatusCompleted = "completed"
)

// CrewStatusVerbose maps stored statuses to what the user sees.
var CrewStatusVerbose = map[string]string{
	CrewStatusAvailable: "Available",
	CrewStatusOnMission: "On mission",
	CrewStatusReturning: "Returning",
	CrewStatusCompleted: "Completed",
}

type Crew struct {
	ID                int64      `json:"id"`
	DepartureID       int64      `json:"departure_id"`
	Title             string     `json:"title"`
	DriverID          int64      `json:"driver_id"`
	PickupLocation    Point      `json:"pickup_location"`
	PickupDatetime    time.Time  `json:"pickup_datetime"`
	PassengersMax     int        `json:"passengers_max"`
	Status            string     `json:"status"`
	DepartureDatetime *time.Time `json:"departure_datetime"`
	ReturnDatetime    *time.Time `json:"return_datetime"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Denormalized for listings.
	DriverName     string `json:"driver_name"`
	PassengerCount int    `json:"passenger_count"`
}

const (
	JoinStatusPending  = "pending"
	JoinStatusAccepted = "accepted"
	JoinStatusRejected = "rejected"
)

type JoinRequest struct {
	ID          int64     `json:"id"`
	CrewID      int64     `json:"crew_id"`
	PassengerID int64     `json:"passenger_id"`
	Status      string    `json:"status"`
	RequestTime time.Time `json:"request_time"`

	PassengerName string `json:"passenger_name"`
}

// Emoji returns the status marker shown in the driver's request list.
func (jr *JoinRequest) Emoji() string {
	switch jr.Status {
	case JoinStatusPending:
		return "🟡"
	case JoinStatusAccepted:
		return "🟢"
	case JoinStatusRejected:
		return "🔴"
	}
	return ""
}
