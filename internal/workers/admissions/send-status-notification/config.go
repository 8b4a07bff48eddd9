package sendstatusnotification

import "time"

type Config struct {
	SchoolName   string
	EmailEnabled bool
	SMSEnabled   bool
	// CountryCode turns the 10-digit mobile key into an E.164 number.
	CountryCode string
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		SchoolName:  "Admissions Office",
		CountryCode: "+91",
		Timeout:     30 * time.Second,
	}
}
