package entity

import "regexp"

var locationPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidLocationID reports whether id is safe to use as a database file name
func ValidLocationID(id string) bool {
	return locationPattern.MatchString(id)
}
