// Package app loads configuration and wires the concrete stores, services
// and relay clients used by the pairchat and relay commands.
package app
