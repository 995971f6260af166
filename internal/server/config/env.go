package config

import "github.com/kelseyhightower/envconfig"

// parseEnv overlays variables named by the envconfig tags on Config
// (JWT_SECRET, GOOGLE_CLIENT_ID, AWS_REGION, ...). Unset variables leave
// the current value untouched. A malformed value panics.
func parseEnv(config *Config) {
	if err := envconfig.Process("", config); err != nil {
		panic(err)
	}
}
