package config

import "os"

// parseEnv overlays Config fields from process environment variables.
// Only variables that are actually set override the current value.
func parseEnv(config *Config) {
	overlay := func(dst *string, name string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	overlay(&config.EndpointAddrHTTP, "ADDRESS")
	overlay(&config.DatabaseDSN, "DATABASE_DSN")
	overlay(&config.SecretKey, "SECRET_KEY")
	overlay(&config.EncryptionKey, "ENCRYPTION_KEY")
	overlay(&config.BaseURL, "BASE_URL")
	overlay(&config.SMTPHost, "SMTP_HOST")
	overlay(&config.SMTPPort, "SMTP_PORT")
	overlay(&config.SMTPUser, "SMTP_USER")
	overlay(&config.SMTPPassword, "SMTP_PASS")
	overlay(&config.SMTPFrom, "SMTP_FROM")
	overlay(&config.TurnstileSecret, "TURNSTILE_SECRET_KEY")
	overlay(&config.S3RootUser, "S3_ROOT_USER")
	overlay(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	overlay(&config.S3Bucket, "S3_BUCKET")
	overlay(&config.S3Region, "S3_REGION")
	overlay(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
}
