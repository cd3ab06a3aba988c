package config

import "os"

// EnvOverrides carries environment variable values into config resolution.
type EnvOverrides struct {
	ConfigPath string
	DataDir    string
	APIBaseURL string
	APIToken   string
}

// ReadEnvOverrides samples the TIDEWATCH_* environment variables.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv("TIDEWATCH_CONFIG"),
		DataDir:    os.Getenv("TIDEWATCH_DATA_DIR"),
		APIBaseURL: os.Getenv("TIDEWATCH_API_URL"),
		APIToken:   os.Getenv("TIDEWATCH_API_TOKEN"),
	}
}
