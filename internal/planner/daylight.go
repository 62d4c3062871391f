package planner

import (
	"time"

	"github.com/sixdouglas/suncalc"
)

// DaylightWindow returns the sunrise and sunset for the given coordinates
// on the day of at. Used for log context and the admin status snapshot;
// the dispatch rules themselves key off irradiance, not sun position.
func DaylightWindow(at time.Time, lat, lon float64) (sunrise, sunset time.Time) {
	times := suncalc.GetTimes(at, lat, lon)
	return times["sunrise"].Value, times["sunset"].Value
}
