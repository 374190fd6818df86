// Command bookings runs the booking service: the bookings API and the consumer
// that applies the flight service's answers.
package main

import (
	"os"

	"github.com/Domenick1991/flightsaga/config"
	"github.com/Domenick1991/flightsaga/internal/bootstrap"
)

func main() {
	os.Exit(bootstrap.Main(config.ServiceBookings, os.Args[1:]))
}
