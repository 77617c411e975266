// Package control parses operator commands and applies them to a running
// world. The same Terminal serves stdin in the server binary and the
// POST /control endpoint of the stream server.
package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/cxd309/traffic-sim/internal/engine"
	"github.com/cxd309/traffic-sim/internal/graph"
	"github.com/cxd309/traffic-sim/internal/vehicle"
)

const (
	SlowSpawn      = 50
	NormalSpawn    = 5
	FastSpawn      = 3
	LudicrousSpawn = 0

	prompt = "> "
)

var (
	// ErrUnknownCommand reports a line that names no command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage reports a known command with missing or malformed arguments.
	ErrUsage = errors.New("usage")
)

// World is the part of engine.World the terminal drives.
type World interface {
	SetSpawnDelay(ticks int) error
	SpawnDelay() int
	ClearMap()
	SetLightsYellow()
	RemoveYellowLights()
	SetTimeOfDay(hour int) error
	SetWeather(w vehicle.Weather) error
	CloseLane(from, to graph.NodeID) error
	OpenLane(from, to graph.NodeID) error
	Stats() engine.Stats
}

var _ World = (*engine.World)(nil)

type command struct {
	name  string
	usage string
	args  int
	run   func(t *Terminal, args []string) ([]string, error)
}

// Terminal executes command lines against a World.
type Terminal struct {
	world    World
	commands []command
}

// New returns a terminal bound to w.
func New(w World) *Terminal {
	t := &Terminal{world: w}
	t.commands = []command{
		{name: "COMMANDS", run: (*Terminal).listCommands},
		{name: "SPAWNSPEEDSLOW", run: spawnDelay(SlowSpawn)},
		{name: "SPAWNSPEEDNORMAL", run: spawnDelay(NormalSpawn)},
		{name: "SPAWNSPEEDFAST", run: spawnDelay(FastSpawn)},
		{name: "SPAWNSPEEDLUDICROUS", run: spawnDelay(LudicrousSpawn)},
		{name: "SPAWNDELAY", usage: "<ticks>", args: 1, run: (*Terminal).setSpawnDelay},
		{name: "CLEARCARS", run: func(t *Terminal, _ []string) ([]string, error) {
			t.world.ClearMap()
			return nil, nil
		}},
		{name: "YELLOWLIGHTS", run: func(t *Terminal, _ []string) ([]string, error) {
			t.world.SetLightsYellow()
			return nil, nil
		}},
		{name: "REMYELLOWLIGHTS", run: func(t *Terminal, _ []string) ([]string, error) {
			t.world.RemoveYellowLights()
			return nil, nil
		}},
		{name: "TIME", usage: "<hour>", args: 1, run: (*Terminal).setTime},
		{name: "WEATHER", usage: "<sunshine|rain|cloudy|snow|storm>", args: 1, run: (*Terminal).setWeather},
		{name: "CLOSELANE", usage: "<from> <to>", args: 2, run: func(t *Terminal, args []string) ([]string, error) {
			return nil, t.world.CloseLane(args[0], args[1])
		}},
		{name: "OPENLANE", usage: "<from> <to>", args: 2, run: func(t *Terminal, args []string) ([]string, error) {
			return nil, t.world.OpenLane(args[0], args[1])
		}},
		{name: "STATS", run: (*Terminal).stats},
	}
	return t
}

// Greeting is printed when a terminal session starts.
func Greeting() []string {
	return []string{
		prompt + "This is a terminal.",
		prompt + "Type COMMANDS to see all commands that are available",
	}
}

// Execute runs one command line. Command names are case-insensitive and an
// optional "> " prompt is ignored. The returned lines are the terminal output,
// including the error message when err is non-nil.
func (t *Terminal) Execute(line string) ([]string, error) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), strings.TrimSpace(prompt)))
	if len(fields) == 0 {
		return nil, nil
	}
	name := strings.ToUpper(fields[0])
	cmd, ok := lo.Find(t.commands, func(c command) bool { return c.name == name })
	if !ok {
		return []string{"Unknown Command: " + fields[0]}, fmt.Errorf("%q: %w", fields[0], ErrUnknownCommand)
	}
	args := fields[1:]
	if len(args) != cmd.args {
		err := fmt.Errorf("%w: %s %s", ErrUsage, cmd.name, cmd.usage)
		return []string{err.Error()}, err
	}

	out := []string{"Executing command: " + strings.Join(append([]string{cmd.name}, args...), " ")}
	lines, err := cmd.run(t, args)
	out = append(out, lines...)
	if err != nil {
		out = append(out, "Error: "+err.Error())
	}
	return out, err
}

// Complete extends prefix as far as the known commands agree, the way a
// shell completes a unique prefix. It reports false when no command matches.
func (t *Terminal) Complete(prefix string) (string, bool) {
	p := strings.ToUpper(strings.TrimPrefix(strings.TrimLeft(prefix, " "), strings.TrimSpace(prompt)))
	p = strings.TrimLeft(p, " ")
	matches := lo.FilterMap(t.commands, func(c command, _ int) (string, bool) {
		return c.name, strings.HasPrefix(c.name, p)
	})
	if len(matches) == 0 {
		return prefix, false
	}
	common := matches[0]
	for _, m := range matches[1:] {
		i := 0
		for i < len(common) && i < len(m) && common[i] == m[i] {
			i++
		}
		common = common[:i]
	}
	return common, true
}

// Commands lists every command with its usage.
func (t *Terminal) Commands() []string {
	return lo.Map(t.commands, func(c command, _ int) string {
		if c.usage == "" {
			return c.name
		}
		return c.name + " " + c.usage
	})
}

func (t *Terminal) listCommands(_ []string) ([]string, error) {
	return t.Commands(), nil
}

func spawnDelay(ticks int) func(*Terminal, []string) ([]string, error) {
	return func(t *Terminal, _ []string) ([]string, error) {
		return nil, t.world.SetSpawnDelay(ticks)
	}
}

func (t *Terminal) setSpawnDelay(args []string) ([]string, error) {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: SPAWNDELAY <ticks>: %q is not a number", ErrUsage, args[0])
	}
	if err := t.world.SetSpawnDelay(n); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("spawn delay %d", t.world.SpawnDelay())}, nil
}

func (t *Terminal) setTime(args []string) ([]string, error) {
	hour, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: TIME <hour>: %q is not a number", ErrUsage, args[0])
	}
	return nil, t.world.SetTimeOfDay(hour)
}

func (t *Terminal) setWeather(args []string) ([]string, error) {
	w, err := vehicle.ParseWeather(args[0])
	if err != nil {
		return nil, err
	}
	return nil, t.world.SetWeather(w)
}

func (t *Terminal) stats(_ []string) ([]string, error) {
	s := t.world.Stats()
	return []string{
		fmt.Sprintf("tick %d, live %d, spawned %d", s.Tick, s.Live, s.Spawned),
		fmt.Sprintf("arrived %d, terminated %d, drained %d, deadlocks %d", s.Arrived, s.Terminated, s.Drained, s.Deadlocks),
	}, nil
}
