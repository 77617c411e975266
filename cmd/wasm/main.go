//go:build js && wasm

// Command wasm exposes the traffic engine to the browser via WebAssembly.
// After loading, it registers two global JavaScript functions:
//
//	runSimulation(jsonString) -> jsonString
//	simulationCommands() -> [string]
//
// The input and output of runSimulation are JSON-encoded SimulationInput and
// SimulationSummary respectively, matching the contract used by the CLI.
package main

import (
	"syscall/js"

	"github.com/cxd309/traffic-sim/internal/control"
	"github.com/cxd309/traffic-sim/internal/engine"
)

func main() {
	js.Global().Set("runSimulation", js.FuncOf(runSimulation))
	js.Global().Set("simulationCommands", js.FuncOf(simulationCommands))
	select {} // keep the WASM module alive until the page is closed
}

func runSimulation(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no input provided"}
	}

	result, err := engine.RunJSON(args[0].String())
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return result
}

func simulationCommands(_ js.Value, _ []js.Value) any {
	w, err := engine.NewWorld(engine.DefaultOptions())
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	cmds := control.New(w).Commands()
	out := make([]any, len(cmds))
	for i, c := range cmds {
		out[i] = c
	}
	return out
}
