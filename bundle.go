// Package inverter2mqtt carries files shipped with the binary.
package inverter2mqtt

import (
	_ "embed"
)

const BundledConfigName = "inverter2mqtt.hcl"

//go:embed inverter2mqtt.hcl
var BundledConfig string
