// Command cli is the batch front end of the traffic simulator. It takes a run
// description (seed, tick count, map or layout, driver profile) as JSON from
// the file named on the command line or from stdin, and prints the totals of
// spawned, delivered and drained vehicles as JSON.
//
//	cli run.json
//	echo '{"seed": 7, "ticks": 1000}' | cli
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cxd309/traffic-sim/internal/engine"
)

func main() {
	var (
		data []byte
		err  error
	)

	if len(os.Args) > 1 {
		data, err = os.ReadFile(os.Args[1])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
		os.Exit(1)
	}

	result, err := engine.RunJSON(string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulation error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result)
}
