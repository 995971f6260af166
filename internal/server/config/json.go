package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tzikbal/internal/flagx"
	"github.com/dmitrijs2005/tzikbal/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations use timex.Duration so
// both "15m" and integer nanoseconds are accepted. Only keys present in the
// file override the current values.
type JsonConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	RedisAddr                   *string         `json:"redis_addr"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	GoogleClientID              *string         `json:"google_client_id"`
	GoogleClientSecret          *string         `json:"google_client_secret"`
	GoogleCallbackURL           *string         `json:"google_callback_url"`
	S3AccessKeyID               *string         `json:"s3_access_key_id"`
	S3SecretAccessKey           *string         `json:"s3_secret_access_key"`
	S3Bucket                    *string         `json:"s3_bucket"`
	S3Region                    *string         `json:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint"`
	CORSOrigins                 []string        `json:"cors_origins"`
	RequestTimeout              *timex.Duration `json:"request_timeout"`
	MaxUploadSize               *int64          `json:"max_upload_size"`
	LogFormat                   *string         `json:"log_format"`
	Version                     *string         `json:"version"`
	Production                  *bool           `json:"production"`
}

// parseJson overlays values from the JSON file named by -c/-config (or the
// CONFIG env variable). Without a path nothing happens. An unreadable file
// or invalid JSON panics: a broken config must stop startup.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.GoogleCallbackURL, c.GoogleCallbackURL)
	setString(&config.S3AccessKeyID, c.S3AccessKeyID)
	setString(&config.S3SecretAccessKey, c.S3SecretAccessKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
	if c.RequestTimeout != nil {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.MaxUploadSize != nil {
		config.MaxUploadSize = *c.MaxUploadSize
	}
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.Version, c.Version)
	if c.Production != nil {
		config.Production = *c.Production
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
