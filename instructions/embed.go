// Package instructions holds the built-in participant instructions.
package instructions

import _ "embed"

// Default is the instructions bundle used when no file is configured.
//
//go:embed default.yml
var Default string
