package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tilewalk.ai/internal/sim/world/logic/pathing"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int `yaml:"tick_rate_hz"`

	// Tiles drained from a walking queue per tick.
	WalkStepsPerTick int `yaml:"walk_steps_per_tick"`
	RunStepsPerTick  int `yaml:"run_steps_per_tick"`

	Pathfinder Pathfinder `yaml:"pathfinder"`
}

type Pathfinder struct {
	MaxRadius    int    `yaml:"max_radius"`
	MaxDumbSteps int    `yaml:"max_dumb_steps"`
	Player       string `yaml:"player_strategy"`
	NPC          string `yaml:"npc_strategy"`
}

func Defaults() Tuning {
	pf := pathing.DefaultConfig()
	return Tuning{
		ProtocolVersion:  "1.0",
		TickRateHz:       5,
		WalkStepsPerTick: 1,
		RunStepsPerTick:  2,
		Pathfinder: Pathfinder{
			MaxRadius:    pf.MaxRadius,
			MaxDumbSteps: pf.MaxDumbSteps,
			Player:       pathing.Smart.String(),
			NPC:          pathing.Dumb.String(),
		},
	}
}

// Load reads path on top of Defaults. Keys absent from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz)
	}
	if t.WalkStepsPerTick <= 0 {
		return fmt.Errorf("walk_steps_per_tick must be > 0")
	}
	if t.RunStepsPerTick < t.WalkStepsPerTick {
		return fmt.Errorf("run_steps_per_tick must be >= walk_steps_per_tick")
	}
	if t.Pathfinder.MaxRadius <= 0 {
		return fmt.Errorf("pathfinder.max_radius must be > 0")
	}
	if t.Pathfinder.MaxDumbSteps <= 0 {
		return fmt.Errorf("pathfinder.max_dumb_steps must be > 0")
	}
	if _, err := pathing.ParseStrategy(t.Pathfinder.Player); err != nil {
		return fmt.Errorf("pathfinder.player_strategy: %w", err)
	}
	if _, err := pathing.ParseStrategy(t.Pathfinder.NPC); err != nil {
		return fmt.Errorf("pathfinder.npc_strategy: %w", err)
	}
	return nil
}

// PathConfig is the routing configuration the world hands to its finder.
func (t Tuning) PathConfig() pathing.Config {
	return pathing.Config{MaxRadius: t.Pathfinder.MaxRadius, MaxDumbSteps: t.Pathfinder.MaxDumbSteps}
}

// Strategy returns the default routing strategy for a mover kind. Validate
// has already rejected unknown names, so parse errors fall back to the kind default.
func (t Tuning) Strategy(player bool) pathing.Strategy {
	if player {
		if s, err := pathing.ParseStrategy(t.Pathfinder.Player); err == nil {
			return s
		}
		return pathing.Smart
	}
	if s, err := pathing.ParseStrategy(t.Pathfinder.NPC); err == nil {
		return s
	}
	return pathing.Dumb
}
