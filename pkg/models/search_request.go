package models

import "time"

const (
	SearchStatusOpen   = "open"
	SearchStatusActive = "active"
	SearchStatusClosed = "closed"
)

type SearchRequest struct {
	ID                int64     `json:"id"`
	FullName          string    `json:"full_name"`
	DisappearanceDate time.Time `json:"disappearance_date"`
	City              string    `json:"city"`
	Location          Point     `json:"location"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

type Departure struct {
	ID              int64     `json:"id"`
	SearchRequestID int64     `json:"search_request_id"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Denormalized from the joined search request for listings.
	MissingPerson string `json:"missing_person"`
	City          string `json:"city"`
	CrewCount     int    `json:"crew_count"`
}

type Task struct {
	ID          int64     `json:"id"`
	DepartureID int64     `json:"departure_id"`
	Title       string    `json:"title"`
	Address     string    `json:"address"`
	Coordinates Point     `json:"coordinates"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
