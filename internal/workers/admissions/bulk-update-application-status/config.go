package bulkupdateapplicationstatus

import "time"

type Config struct {
	Timeout time.Duration
	// MaxApplications caps one job so a single statement per pool stays bounded.
	MaxApplications int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		MaxApplications: 500,
	}
}
