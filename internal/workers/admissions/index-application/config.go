package indexapplication

import "time"

type Config struct {
	Index   string
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Index:   "admission-applications",
		Timeout: 10 * time.Second,
	}
}
