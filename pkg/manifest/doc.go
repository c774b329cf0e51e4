// Package manifest loads the YAML declaration of a controller mapping: the
// controls it expects to exist with their ranges and defaults, the settings
// scripts read through getSetting, and the controls that start with soft
// takeover enabled.
package manifest
