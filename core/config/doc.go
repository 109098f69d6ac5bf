// Package config provides type-safe environment variable loading with
// caching using Go generics. Each configuration type is loaded once and
// cached for subsequent calls.
//
// The package automatically loads .env files on first use and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	type PipelineConfig struct {
//		CorrelationHeader string `env:"CORRELATION_HEADER" envDefault:"X-Correlation-ID"`
//		MaxJSONBody       int64  `env:"MAX_JSON_BODY" envDefault:"1048576"`
//	}
//
//	var cfg PipelineConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// Each type is cached independently; Reset exists for tests that need to
// reload after changing the environment.
package config
