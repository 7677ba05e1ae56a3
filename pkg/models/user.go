package models

import "time"

type User struct {
	ID              int64     `json:"id"`
	TelegramID      int64     `json:"telegram_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	PatronymicName  string    `json:"patronymic_name"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address"`
	HasCar          bool      `json:"has_car"`
	TZOffsetMinutes int       `json:"tz_offset_minutes"`
	IsActive        bool      `json:"is_active"`
	LastActionAt    time.Time `json:"last_action_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FullName joins the name parts the same way the dashboard displays them.
func (u *User) FullName() string {
	full := u.LastName
	for _, part := range []string{u.FirstName, u.PatronymicName} {
		if part == "" {
			continue
		}
		if full != "" {
			full += " "
		}
		full += part
	}
	return full
}

// Location returns the user's timezone as a fixed-offset location.
func (u *User) Location() *time.Location {
	return time.FixedZone("user", u.TZOffsetMinutes*60)
}
