// Package config defines the settings shared by the SOS binaries and provides
// helpers to load, validate and save them in YAML format.
//
// Values from the YAML file can be overridden by SOS_* environment variables,
// optionally sourced from a .env file. Validate fills defaults for everything
// that is not strictly required.
package config
