// Package config loads authgate configuration from a YAML file, an
// optional .env file and the process environment using Viper.
//
// Lookup order for the YAML file is ./cmd/<service>/config.yml, then the
// same path one and two levels up, then ./config.yml. Environment
// variables override file values; with WithEnvPrefix("AUTHGATE") the
// variable AUTHGATE_AUTH_ACCESS_TOKEN_TTL sets auth.access_token_ttl.
//
//	var cfg app.Config
//	err := config.LoadConfig("authgate", &cfg, config.WithEnvPrefix("AUTHGATE"))
package config
