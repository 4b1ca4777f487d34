// Package config loads typed configuration from environment variables.
//
// It wraps github.com/caarlos0/env/v11 for struct-tag parsing and
// github.com/joho/godotenv for optional .env files:
//
//	var cfg alytica.Config
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Load caches one value per configuration type for the lifetime of the
// process. Parse skips the cache and accepts a tag prefix, which is what you
// want when a process tracks on behalf of several client ids. ResetCache
// clears the cache between tests.
//
// Failures wrap ErrParsingConfig, ErrNilPointer or ErrLoadingEnvFile and can
// be checked with errors.Is.
package config
