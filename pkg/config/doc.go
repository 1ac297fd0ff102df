// Package config defines the server configuration model and loaders.
//
// Configuration can be supplied as JSON or YAML; the format is detected
// from the file extension. Missing fields fall back to the defaults from
// Default, and every loaded config passes through Validate before use.
package config
