package runtime

import (
	"tilewalk.ai/internal/sim/world/kernel/model"
	"tilewalk.ai/internal/sim/world/logic/pathing"
)

// CantReachMessage is sent to players whose route stopped short of the target.
const CantReachMessage = "I can't reach that."

// Mover is the movement view of an entity.
type Mover interface {
	model.Node
	Face(target model.Node)
	WalkingQueue() *model.WalkingQueue
	RegionActive() bool
	IsPlayer() bool
	NeverWalks() bool
}

// Env is what a movement pulse needs from the world.
type Env interface {
	pathing.Finder
	CanMove(d model.Direction, l model.Location) bool
	SendMessage(m Mover, text string)
	ClearMovementFlag(m Mover)
}

type mobile interface {
	model.Node
	WalkingQueue() *model.WalkingQueue
}

func isMobile(n model.Node) bool {
	_, ok := n.(mobile)
	return ok
}
