package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/tuemi-io/tuemi/cmd/tuemi-server/app"
)

func main() {
	app.NewApp().Run()
}
