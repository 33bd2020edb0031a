package main

import (
	"os"

	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
