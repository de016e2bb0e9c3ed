package config

import "time"

type MapsConfig struct {
	Provider   string            `yaml:"provider"`
	GoogleMaps *GoogleMapsConfig `yaml:"google_maps"`
	Timeout    time.Duration     `yaml:"timeout"`
}

type GoogleMapsConfig struct {
	APIKey string `yaml:"api_key"`
}

// RoadETAEnabled reports whether pickup ETAs should come from the routing API.
func (c *MapsConfig) RoadETAEnabled() bool {
	return c.Provider == "google" && c.GoogleMaps != nil && c.GoogleMaps.APIKey != ""
}

func loadMapsConfig() *MapsConfig {
	return &MapsConfig{
		Provider: getEnv("MAPS_PROVIDER", "none"),
		GoogleMaps: &GoogleMapsConfig{
			APIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
		},
		Timeout: getEnvAsDuration("MAPS_TIMEOUT", 2*time.Second),
	}
}
