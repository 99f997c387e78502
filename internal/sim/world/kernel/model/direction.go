package model

import (
	"fmt"
	"strings"
)

// Direction is one of the four compass directions. The numeric value is the
// clockwise rotation index starting from north.
type Direction int8

const (
	North Direction = iota
	East
	South
	West
)

var directions = [4]Direction{North, East, South, West}

// Directions returns the compass directions in clockwise order from north.
func Directions() [4]Direction { return directions }

func (d Direction) String() string {
	switch d {
	case North:
		return "NORTH"
	case East:
		return "EAST"
	case South:
		return "SOUTH"
	case West:
		return "WEST"
	default:
		return "INVALID"
	}
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORTH", "N":
		return North, nil
	case "EAST", "E":
		return East, nil
	case "SOUTH", "S":
		return South, nil
	case "WEST", "W":
		return West, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// Step is the unit offset of d. North is +Y.
func (d Direction) Step() (dx, dy int) {
	switch d {
	case North:
		return 0, 1
	case East:
		return 1, 0
	case South:
		return 0, -1
	case West:
		return -1, 0
	default:
		return 0, 0
	}
}

func (d Direction) Clockwise() Direction { return Direction((int(d) + 1) & 3) }

func (d Direction) Opposite() Direction { return Direction((int(d) + 2) & 3) }

func (d Direction) Valid() bool { return d >= North && d <= West }

// LogicalDirection classifies the position of to relative to from.
// The dominant axis wins; ties and equal points resolve vertically, north first.
func LogicalDirection(from, to Location) Direction {
	dx := abs(to.X - from.X)
	dy := abs(to.Y - from.Y)
	if dx > dy {
		if to.X > from.X {
			return East
		}
		return West
	}
	if to.Y < from.Y {
		return South
	}
	return North
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
