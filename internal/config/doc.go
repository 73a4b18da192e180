// Package config loads, normalizes, and validates shotpipe configuration.
//
// Values are layered: repository defaults, then the TOML file, then .env
// files next to the config and in the working directory, then SHOTPIPE_*
// environment variables. All path fields come back expanded and absolute.
package config
