package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "SHAREPOINT_GO_CONFIG"
	EnvTenantID     = "SHAREPOINT_TENANT_ID"
	EnvClientID     = "SHAREPOINT_CLIENT_ID"
	EnvClientSecret = "SHAREPOINT_CLIENT_SECRET"
	EnvAccessToken  = "SHAREPOINT_ACCESS_TOKEN"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath   string // SHAREPOINT_GO_CONFIG: override config file path
	TenantID     string // SHAREPOINT_TENANT_ID
	ClientID     string // SHAREPOINT_CLIENT_ID
	ClientSecret string // SHAREPOINT_CLIENT_SECRET: never read from the file
	AccessToken  string // SHAREPOINT_ACCESS_TOKEN: skips the OAuth exchange
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		TenantID:     os.Getenv(EnvTenantID),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		AccessToken:  os.Getenv(EnvAccessToken),
	}
}
