package bot

import (
	"fmt"
	"strings"
	"time"

	"rescuebot/pkg/models"
)

// crewCard renders the driver's view of their crew. Times are shown in the
// viewer's timezone.
func crewCard(crew *models.Crew, loc *time.Location) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Crew \"%s\"\n", crew.Title)
	fmt.Fprintf(&b, "Status: %s\n", models.CrewStatusVerbose[crew.Status])
	fmt.Fprintf(&b, "Pickup: %s\n", crew.PickupLocation.String())
	fmt.Fprintf(&b, "Pickup time: %s\n", crew.PickupDatetime.In(loc).Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "Passengers: %d of %d", crew.PassengerCount, crew.PassengersMax)

	if crew.DepartureDatetime != nil {
		fmt.Fprintf(&b, "\nDeparted: %s", crew.DepartureDatetime.In(loc).Format("02.01.2006 15:04"))
	}
	if crew.ReturnDatetime != nil {
		fmt.Fprintf(&b, "\nReturned: %s", crew.ReturnDatetime.In(loc).Format("02.01.2006 15:04"))
	}
	return b.String()
}

// crewListLabel is one button caption in the volunteer's crew list. When the
// volunteer shared a location the pickup distance is appended.
func crewListLabel(crew *models.Crew, from *models.Point) string {
	label := fmt.Sprintf("%s (%d/%d seats)", crew.Title, crew.PassengerCount, crew.PassengersMax)
	if from != nil {
		label += fmt.Sprintf(", %.1f km", from.DistanceKm(crew.PickupLocation))
	}
	return label
}

// joinCrewCard renders the volunteer's view of a crew, with their own request
// marker when one exists.
func joinCrewCard(crew *models.Crew, jr *models.JoinRequest, loc *time.Location) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Crew \"%s\"\n", crew.Title)
	fmt.Fprintf(&b, "Driver: %s\n", crew.DriverName)
	fmt.Fprintf(&b, "Pickup: %s\n", crew.PickupLocation.String())
	fmt.Fprintf(&b, "Pickup time: %s\n", crew.PickupDatetime.In(loc).Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "Seats taken: %d of %d", crew.PassengerCount, crew.PassengersMax)

	if jr != nil {
		fmt.Fprintf(&b, "\nYour request: %s %s", jr.Emoji(), jr.Status)
	}
	return b.String()
}

func departureCard(dep *models.Departure, tasks []*models.Task) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Departure #%d\n", dep.ID)
	fmt.Fprintf(&b, "Missing person: %s\n", dep.MissingPerson)
	fmt.Fprintf(&b, "City: %s\n", dep.City)
	fmt.Fprintf(&b, "Crews engaged: %d", dep.CrewCount)

	if len(tasks) > 0 {
		b.WriteString("\nTasks:")
		for _, task := range tasks {
			fmt.Fprintf(&b, "\n- %s (%s)", task.Title, task.Address)
		}
	}
	return b.String()
}

func departureLabel(dep *models.Departure) string {
	return fmt.Sprintf("%s, %s (%d crews)", dep.MissingPerson, dep.City, dep.CrewCount)
}

func draftSummary(d *models.CrewDraft) string {
	return fmt.Sprintf("Crew \"%s\"\nPickup: %s\nDate: %s at %s\nSeats: %d\n\nSave it?",
		d.Title, d.PickupLocation.String(),
		d.PickupDate.Format("02.01.2006"), d.PickupClock, d.PassengersMax)
}

func settingsCard(u *models.User) string {
	car := "no"
	if u.HasCar {
		car = "yes"
	}
	return fmt.Sprintf("Your settings:\nCar: %s\nTimezone: %s",
		car, formatTZOffset(u.TZOffsetMinutes))
}
