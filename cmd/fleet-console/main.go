package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/fleetlink/cmd/fleet-console/app"
)

func main() {
	app.NewApp().Run()
}
