// Package config loads service configuration from a YAML file, an optional
// .env file and the process environment using Viper.
//
// Files are searched in the conventional locations relative to the working
// directory (./cmd/<service>/config.yml, ./config/config.yml, ./config.yml).
// Environment variables override file values; with an env prefix of
// TRANSCRIPTCHECK, the variable TRANSCRIPTCHECK_VALIDATOR_SCORE_THRESHOLD sets
// validator.score_threshold.
package config
