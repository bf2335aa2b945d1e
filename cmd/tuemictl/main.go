package main

import (
	"fmt"
	"os"

	"github.com/tuemi-io/tuemi/cmd/tuemictl/app"
)

func main() {
	if err := app.NewCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
