// Package mjd converts Modified Julian Dates to calendar dates and
// night buckets. MJD day boundaries fall on UTC midnight, so the night
// bucket of an observation is simply the integer part of its MJD.
package mjd

import (
	"fmt"
	"math"
	"time"
)

// flookup gives the day-of-year offset per month in the shifted
// (March-based) year used by the day-number formula.
var flookup = [13]int{0, 306, 337, 0, 31, 61, 92, 122, 153, 184, 214, 245, 275}

// Night returns the integer night bucket of an MJD timestamp.
// Monotonic in the input; equal buckets mean the same UTC calendar day.
func Night(timeMjd float64) int {
	return int(math.Floor(timeMjd))
}

// FromDate returns the MJD day number of a Gregorian calendar date.
func FromDate(year int, month time.Month, day int) int {
	z := year + (int(month)-14)/12
	m := flookup[month] + 365*z + z/4 - z/100 + z/400 - 678882
	return m + day
}

// Date returns the Gregorian calendar date containing an MJD timestamp.
func Date(timeMjd float64) (year int, month time.Month, day int) {
	// Fliegel-Van Flandern on the Julian day number at noon of the MJD day.
	jdn := Night(timeMjd) + 2400001
	l := jdn + 68569
	n := 4 * l / 146097
	l -= (146097*n + 3) / 4
	i := 4000 * (l + 1) / 1461001
	l += 31 - 1461*i/4
	j := 80 * l / 2447
	day = l - 2447*j/80
	l = j / 11
	month = time.Month(j + 2 - 12*l)
	year = 100*(n-49) + i + l
	return year, month, day
}

// DateString formats the calendar day of an MJD timestamp as YYYY-MM-DD.
func DateString(timeMjd float64) string {
	y, m, d := Date(timeMjd)
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// Time converts an MJD timestamp to a UTC time.Time.
func Time(timeMjd float64) time.Time {
	y, m, d := Date(timeMjd)
	frac := timeMjd - math.Floor(timeMjd)
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(frac * 24 * float64(time.Hour)))
}
