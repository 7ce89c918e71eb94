package domain

// Detection represents a single epochal detection of a transient source.
type Detection struct {
	SourceID    int64   `json:"source_id"`    // survey-issued source identifier
	Mjd         float64 `json:"mjd"`          // observation epoch (Modified Julian Date, UTC)
	RA          float64 `json:"ra"`           // right ascension in degrees (J2000)
	Dec         float64 `json:"dec"`          // declination in degrees (J2000)
	RAErr       float64 `json:"ra_err"`       // 1-sigma RA uncertainty in degrees
	DecErr      float64 `json:"dec_err"`      // 1-sigma Dec uncertainty in degrees
	Mag         float64 `json:"mag"`          // PSF magnitude
	Band        string  `json:"band"`         // filter band (g, r, i, ...)
	SolarSystem bool    `json:"solar_system"` // matched to a known moving object upstream
}
