package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFlags_Overrides(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	os.Args = []string{"app",
		"-a", ":9999",
		"-d", "postgres://flag-host/db",
		"-s", "flag-secret",
		"-k", "flag-encryption-key",
		"-t", "5",
		"-r", "120",
		"-b", "flag-bucket",
	}

	var c Config
	c.LoadDefaults()
	parseFlags(&c)

	assert.Equal(t, ":9999", c.EndpointAddrHTTP)
	assert.Equal(t, "postgres://flag-host/db", c.DatabaseDSN)
	assert.Equal(t, "flag-secret", c.SecretKey)
	assert.Equal(t, "flag-encryption-key", c.EncryptionKey)
	assert.Equal(t, 5*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 120*time.Minute, c.RefreshTokenValidityDuration)
	assert.Equal(t, "flag-bucket", c.S3Bucket)
}

func TestParseFlags_KeepsDefaultsWithoutFlags(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()
	os.Args = []string{"app"}

	var c Config
	c.LoadDefaults()
	parseFlags(&c)

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
}
