// strata-mock serves the in-memory mock database on its own, without the
// full CLI, for quick local experiments.
package main

import (
	"flag"
	"fmt"
	"os"

	"evalgo.org/strata/internal/mockdb"
)

func main() {
	address := flag.String("address", ":8529", "listen address")
	flag.Parse()

	if err := mockdb.New().Start(*address); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
