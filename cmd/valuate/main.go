// Command valuate queries the valuation provider from the command line and
// prints the gateway results as JSON.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, gatewayFromConfig).Execute(); err != nil {
		os.Exit(1)
	}
}
