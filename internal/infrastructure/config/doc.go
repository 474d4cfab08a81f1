// Package config loads and validates BusPro Core configuration.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by BUSPRO_* environment variables. A half-configured
// auth section degrades to mode "none" rather than failing startup.
package config
