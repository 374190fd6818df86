// Command standalone runs both services in one process, usually over the
// in-process broker.
package main

import (
	"os"

	"github.com/Domenick1991/flightsaga/config"
	"github.com/Domenick1991/flightsaga/internal/bootstrap"
)

func main() {
	os.Exit(bootstrap.Main(config.ServiceStandalone, os.Args[1:]))
}
