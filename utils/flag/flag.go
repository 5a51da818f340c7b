/*
flag Package sets up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic.
	For service dependent flags please define in their respective package.
*/

package flag

import (
	"flag"
)

const (
	EngineService    = "engine"
	HunterService    = "hunter"
	PublisherService = "publisher"
)

var (
	IsDevelopment = flag.Bool("dev", true, "set to true if the current run is for development. default value is true")
	ServiceName   = flag.String("service", EngineService, "'engine', 'hunter' or 'publisher'")
	ConfigPath    = flag.String("config", "engine.yaml", "path to the engine yaml config")
)

// ParseFlags must be called from main before any flag is read. It is not
// called from init so that `go test` flags don't collide with ours.
func ParseFlags() {
	flag.Parse()
}
