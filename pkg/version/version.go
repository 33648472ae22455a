// Package version holds the calibration software version stamped into every
// model that a step touches.
package version

// Version is overridden at build time via ldflags.
var Version = "0.3.0-dev"
