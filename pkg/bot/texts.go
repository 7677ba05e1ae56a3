package bot

var messages = map[string]string{
	"welcome":      "I'm a Volunteer Rescue Bot!\nWhat do you want to do?",
	"what_next":    "What is next?",
	"unauthorized": "Sorry, you are not authorized to use this bot.",
	"unknown":      "Sorry, I didn't understand that command.",
	"canceled":     "Canceled. Return back to /start.",
	"failure":      "Something went wrong, please try again.",

	"help": "/start - start conversation and display all available actions\n" +
		"/info - display current status of activities\n" +
		"/help - display this message\n" +
		"/cancel - cancel conversation",

	"no_departures":      "There are no available Departures, please try later.",
	"no_crews":           "There are no available crews right now, please try later.",
	"no_own_crew":        "You don't have a crew yet. Create one from the menu.",
	"choose_departure":   "Let's create a crew! Please choose a Departure.",
	"enter_title":        "Please enter the name of the crew (32 characters or fewer):",
	"enter_location":     "Please share the pickup location: send coordinates as \"lat, lon\", attach a live location, or type an address.",
	"enter_capacity":     "Please specify the passenger capacity of the crew:",
	"enter_date":         "Please enter the pickup date (\"today\", \"tomorrow\" or DD.MM[.YYYY]):",
	"enter_time":         "Please enter the pickup time (HH:MM):",
	"keep_hint":          "Reply \"next\" to keep the current value.",
	"bad_title":          "The title must be between 1 and 32 characters. Please try again.",
	"bad_location":       "I could not recognize that location. Send \"lat, lon\", a live location, or an address.",
	"bad_capacity":       "The capacity must be a positive number. Please try again.",
	"bad_clock":          "That doesn't look like a valid time. Please use HH:MM.",
	"bad_date":           "That doesn't look like a valid date. Please use \"today\", \"tomorrow\" or DD.MM[.YYYY].",
	"past_date":          "The date cannot be in the past. Please try again.",
	"crew_saved":         "Crew saved successfully!",
	"crew_deleted":       "The crew has been deleted.",
	"crew_completed":     "The crew is already completed, its status cannot change.",
	"crew_full":          "The crew has already reached the maximum number of passengers.",
	"already_applied":    "You have already applied to this crew.",
	"applied":            "Your request has been sent to the driver.",
	"withdrawn":          "Your request has been withdrawn.",
	"no_request":         "You have no request for this crew.",
	"send_track":         "Please upload the track file (.gpx, .kml or .kmz).",
	"bad_track":          "Unsupported file type. Please upload a .gpx, .kml or .kmz file.",
	"track_failed":       "The upload failed, please try again.",
	"enter_tz":           "Please enter your timezone offset, e.g. \"+3\", \"-03:30\" or \"UTC+5\".",
	"bad_tz":             "I could not recognize that timezone offset. Try \"+3\" or \"-03:30\".",
	"share_location_tip": "Share a live location to sort crews by distance.",
}
