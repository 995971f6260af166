package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	t.Run("overlays set variables", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "env-secret")
		t.Setenv("JWT_EXPIRES_IN", "45m")
		t.Setenv("GOOGLE_CLIENT_ID", "gid")
		t.Setenv("GOOGLE_CLIENT_SECRET", "gsecret")
		t.Setenv("GOOGLE_CALLBACK_URL", "http://localhost:3000/auth/google/redirect")
		t.Setenv("AWS_REGION", "eu-central-1")
		t.Setenv("AWS_S3_BUCKET", "media")
		t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "env-secret", cfg.SecretKey)
		assert.Equal(t, 45*time.Minute, cfg.AccessTokenValidityDuration)
		assert.True(t, cfg.GoogleEnabled())
		assert.Equal(t, "eu-central-1", cfg.S3Region)
		assert.Equal(t, "media", cfg.S3Bucket)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
		assert.Equal(t, ":3000", cfg.EndpointAddrHTTP, "unset variables keep defaults")
	})

	t.Run("malformed value panics", func(t *testing.T) {
		t.Setenv("JWT_EXPIRES_IN", "forever")

		cfg := &Config{}
		require.Panics(t, func() { parseEnv(cfg) })
	})
}
