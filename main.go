package main

import (
	"log"

	"github.com/okeeper/okeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
