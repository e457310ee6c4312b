package auth

import (
	"regexp"
	"strconv"
	"strings"
)

var gpsPattern = regexp.MustCompile(`GPS:\s*([-\d.]+),\s*([-\d.]+)`)

// ParseLocation reads a free text address. When it contains a
// "GPS: lat, lng" pair the coordinates are extracted, otherwise they stay 0.
func ParseLocation(address string) Location {
	loc := Location{Address: strings.TrimSpace(address)}

	m := gpsPattern.FindStringSubmatch(address)
	if len(m) != 3 {
		return loc
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return loc
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return loc
	}

	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return loc
	}

	loc.Latitude = lat
	loc.Longitude = lng
	return loc
}

// HasCoordinates is false for the 0,0 placeholder
func (l Location) HasCoordinates() bool {
	return l.Latitude != 0 || l.Longitude != 0
}
