package config

type PushConfig struct {
	Enabled bool        `yaml:"enabled"`
	FCM     *FCMConfig  `yaml:"fcm"`
	APNS    *APNSConfig `yaml:"apns"`
}

type FCMConfig struct {
	ProjectID   string `yaml:"project_id"`
	Credentials string `yaml:"credentials_file"`
}

// APNSConfig enables direct delivery to iOS devices. When KeyFile is empty
// iOS tokens go through FCM.
type APNSConfig struct {
	KeyFile    string `yaml:"key_file"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
}

func (c *APNSConfig) Enabled() bool {
	return c != nil && c.KeyFile != ""
}

func loadPushConfig() *PushConfig {
	return &PushConfig{
		Enabled: getEnvAsBool("PUSH_ENABLED", false),
		FCM: &FCMConfig{
			ProjectID:   getEnv("FCM_PROJECT_ID", ""),
			Credentials: getEnv("FCM_CREDENTIALS_FILE", ""),
		},
		APNS: &APNSConfig{
			KeyFile:    getEnv("APNS_KEY_FILE", ""),
			KeyID:      getEnv("APNS_KEY_ID", ""),
			TeamID:     getEnv("APNS_TEAM_ID", ""),
			Topic:      getEnv("APNS_TOPIC", ""),
			Production: getEnvAsBool("APNS_PRODUCTION", false),
		},
	}
}
