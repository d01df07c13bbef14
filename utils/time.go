// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// UTCNowAdd returns the current UTC time plus the given duration
func UTCNowAdd(d time.Duration) time.Time {
	return UTCNow().Add(d)
}

// LimaNow returns the current time in the America/Lima timezone, used for
// report headers shown to field monitors.
func LimaNow() (time.Time, error) {
	loc, err := time.LoadLocation("America/Lima")
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().In(loc), nil
}
