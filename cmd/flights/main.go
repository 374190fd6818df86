// Command flights runs the flight inventory service: the flights API and the
// consumer that reserves and releases seats for booking events.
package main

import (
	"os"

	"github.com/Domenick1991/flightsaga/config"
	"github.com/Domenick1991/flightsaga/internal/bootstrap"
)

func main() {
	os.Exit(bootstrap.Main(config.ServiceFlights, os.Args[1:]))
}
