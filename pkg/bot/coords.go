package bot

import (
	"errors"
	"regexp"
	"strconv"

	"rescuebot/pkg/models"
)

var errBadCoordinates = errors.New("invalid coordinates")

var latLonRe = regexp.MustCompile(`^\s*(-?[0-9]+(?:\.[0-9]+)?)\s*[,;]\s*(-?[0-9]+(?:\.[0-9]+)?)\s*$`)

// parseLatLon parses a "lat, lon" pair and validates both ranges.
func parseLatLon(input string) (models.Point, error) {
	m := latLonRe.FindStringSubmatch(input)
	if m == nil {
		return models.Point{}, errBadCoordinates
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return models.Point{}, errBadCoordinates
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return models.Point{}, errBadCoordinates
	}

	p := models.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return models.Point{}, errBadCoordinates
	}
	return p, nil
}
