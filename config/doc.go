// Package config loads and validates flowkit configuration.
//
// It uses Viper to read a YAML file and environment variables (plus an
// optional .env file loaded with godotenv), then unmarshals into a caller
// struct that embeds ServiceConfig.
//
// # Usage
//
//	type AppConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	}
//	cfg, err := config.Load[AppConfig]("flowkit")
//
// Environment variables override file values. Names are the service prefix
// plus the underscore-separated key path, so the "flowkit" service reads
// FLOWKIT_PIPELINE_DRAIN_TIMEOUT for pipeline.drain_timeout.
package config
