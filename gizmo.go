package umbra

import "github.com/go-gl/mathgl/mgl32"

var (
	ColorOccluded = [4]float32{1, 0, 0, 1}
	ColorLit      = [4]float32{0, 1, 0, 1}
)

// DebugLine is a world-space segment for diagnostic drawing.
type DebugLine struct {
	Start mgl32.Vec3
	End   mgl32.Vec3
	Color [4]float32
}

// DebugLines collects the rays cast during a frame. A nil or disabled
// collector drops everything, which is the non-interactive default.
type DebugLines struct {
	Enabled bool
	Lines   []DebugLine
}

func (d *DebugLines) DrawLine(start, end mgl32.Vec3, color [4]float32) {
	if d == nil || !d.Enabled {
		return
	}
	d.Lines = append(d.Lines, DebugLine{Start: start, End: end, Color: color})
}

func (d *DebugLines) DrawRay(origin, dir mgl32.Vec3, length float32, color [4]float32) {
	d.DrawLine(origin, origin.Add(dir.Mul(length)), color)
}

func clearDebugLinesSystem(lines *DebugLines) {
	lines.Lines = lines.Lines[:0]
}
