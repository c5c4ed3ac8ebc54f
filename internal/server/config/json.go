package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/copypaster/server/internal/flagx"
	"github.com/copypaster/server/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files; after unmarshalling, its fields are copied into the
// runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	EncryptionKey                string         `json:"encryption_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	BaseURL                      string         `json:"base_url"`
	SMTPHost                     string         `json:"smtp_host"`
	SMTPPort                     string         `json:"smtp_port"`
	SMTPUser                     string         `json:"smtp_user"`
	SMTPPassword                 string         `json:"smtp_password"`
	SMTPFrom                     string         `json:"smtp_from"`
	TurnstileSecret              string         `json:"turnstile_secret"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flags. If neither flag is set, no file is loaded. An unreadable or
// invalid file panics: a config file that was explicitly asked for must
// parse.
//
// The DTO is seeded from the current config before unmarshalling, so keys
// absent from the file keep their default or env-provided values.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{
		EndpointAddrHTTP:             config.EndpointAddrHTTP,
		DatabaseDSN:                  config.DatabaseDSN,
		SecretKey:                    config.SecretKey,
		EncryptionKey:                config.EncryptionKey,
		AccessTokenValidityDuration:  timex.Duration{Duration: config.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: config.RefreshTokenValidityDuration},
		BaseURL:                      config.BaseURL,
		SMTPHost:                     config.SMTPHost,
		SMTPPort:                     config.SMTPPort,
		SMTPUser:                     config.SMTPUser,
		SMTPPassword:                 config.SMTPPassword,
		SMTPFrom:                     config.SMTPFrom,
		TurnstileSecret:              config.TurnstileSecret,
		S3RootUser:                   config.S3RootUser,
		S3RootPassword:               config.S3RootPassword,
		S3Bucket:                     config.S3Bucket,
		S3Region:                     config.S3Region,
		S3BaseEndpoint:               config.S3BaseEndpoint,
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.EncryptionKey = c.EncryptionKey
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.BaseURL = c.BaseURL
	config.SMTPHost = c.SMTPHost
	config.SMTPPort = c.SMTPPort
	config.SMTPUser = c.SMTPUser
	config.SMTPPassword = c.SMTPPassword
	config.SMTPFrom = c.SMTPFrom
	config.TurnstileSecret = c.TurnstileSecret
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
