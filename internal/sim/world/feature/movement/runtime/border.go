package runtime

import "tilewalk.ai/internal/sim/world/kernel/model"

// Passability is the direction-specific walkability predicate.
type Passability interface {
	CanMove(d model.Direction, l model.Location) bool
}

// FindBorderLocation finds the tile a mover standing inside dest's footprint
// should step out to. The side facing the mover is tried first, then the
// others clockwise; a side is rejected at its first blocked tile across the
// mover's width. Tiles under dest's own footprint count as open. ok=false
// when every side is blocked.
func FindBorderLocation(clip Passability, m model.Node, dest model.Node) (model.Location, bool) {
	size := dest.Size()
	ms := m.Size()
	ml := m.Location()
	centerDest := dest.Location().Transform(size>>1, size>>1, 0)
	center := ml.Transform(ms>>1, ms>>1, 0)
	dir := model.LogicalDirection(centerDest, center)
	delta := model.Delta(dest.Location(), ml)

	for i := 0; i < 4; i++ {
		amount := borderAmount(dir, size, ms, delta)
		if scanClear(clip, ml, ms, dir, amount, dest) {
			return ml.TransformDir(dir, amount), true
		}
		dir = dir.Clockwise()
	}
	return model.Location{}, false
}

// borderAmount is how far the mover has to travel along d to clear the footprint.
func borderAmount(d model.Direction, size, ms int, delta model.Location) int {
	switch d {
	case model.North:
		return size - delta.Y
	case model.East:
		return size - delta.X
	case model.South:
		return ms + delta.Y
	case model.West:
		return ms + delta.X
	default:
		return 0
	}
}

func scanClear(clip Passability, ml model.Location, ms int, d model.Direction, amount int, dest model.Node) bool {
	dl := dest.Location()
	ds := dest.Size()
	for j := 0; j < amount; j++ {
		for s := 0; s < ms; s++ {
			var l model.Location
			switch d {
			case model.North:
				l = ml.Transform(s, j+ms, 0)
			case model.East:
				l = ml.Transform(j+ms, s, 0)
			case model.South:
				l = ml.Transform(s, -(j + 1), 0)
			case model.West:
				l = ml.Transform(-(j + 1), s, 0)
			default:
				return false
			}
			if l.Plane == dl.Plane && model.StandingIn(l.X, l.Y, 1, 1, dl.X, dl.Y, ds, ds) {
				continue
			}
			if !clip.CanMove(d, l) {
				return false
			}
		}
	}
	return true
}
