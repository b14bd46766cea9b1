// Package camera implements the free-flying camera driven by keyboard input.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"blast-engine/input"
)

const (
	// Speed is the movement speed in units per millisecond.
	Speed float32 = 0.01

	// PitchSpeed is the rotation speed in degrees per millisecond.
	PitchSpeed float32 = 0.1

	// MaxPitch bounds looking up and down, in degrees.
	MaxPitch float32 = 90

	FieldOfView float32 = 45
	Near        float32 = 0.1
	Far         float32 = 10
)

// Camera looks down its -back axis. side stays fixed, pitching rotates up
// and back around it.
type Camera struct {
	position mgl32.Vec3

	side mgl32.Vec3
	up   mgl32.Vec3
	back mgl32.Vec3

	// pitch in degrees
	pitch  float32
	aspect float32
}

// New returns a camera one unit in front of the origin, looking at it.
func New(aspect float32) *Camera {
	return &Camera{
		position: mgl32.Vec3{0, 0, 1},
		side:     mgl32.Vec3{1, 0, 0},
		up:       mgl32.Vec3{0, 1, 0},
		back:     mgl32.Vec3{0, 0, 1},
		aspect:   aspect,
	}
}

// SetAspect follows the swapchain extent. Zero sizes are ignored.
func (c *Camera) SetAspect(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.aspect = float32(width) / float32(height)
}

// Aspect returns the width over height ratio used for the projection.
func (c *Camera) Aspect() float32 {
	return c.aspect
}

// Position returns the camera position in world space.
func (c *Camera) Position() mgl32.Vec3 {
	return c.position
}

// Pitch returns the current pitch in degrees.
func (c *Camera) Pitch() float32 {
	return c.pitch
}

// Apply moves and rotates the camera for a frame which lasted dt
// milliseconds.
func (c *Camera) Apply(s input.Snapshot, dt float32) {
	distance := Speed * dt

	if s.Forward {
		c.position = c.position.Sub(c.back.Mul(distance))
	}
	if s.Backward {
		c.position = c.position.Add(c.back.Mul(distance))
	}
	if s.Left {
		c.position = c.position.Sub(c.side.Mul(distance))
	}
	if s.Right {
		c.position = c.position.Add(c.side.Mul(distance))
	}

	var delta float32
	if s.Up {
		delta += PitchSpeed * dt
	}
	if s.Down {
		delta -= PitchSpeed * dt
	}
	if delta != 0 {
		c.rotatePitch(delta)
	}
}

func (c *Camera) rotatePitch(delta float32) {
	c.pitch = mgl32.Clamp(c.pitch+delta, -MaxPitch, MaxPitch)

	rotation := mgl32.QuatRotate(mgl32.DegToRad(c.pitch), c.side)
	c.up = rotation.Rotate(mgl32.Vec3{0, 1, 0}).Normalize()
	c.back = c.side.Cross(c.up).Normalize()
}

// View returns the world to camera transform.
func (c *Camera) View() mgl32.Mat4 {
	p := c.position

	return mgl32.Mat4{
		c.side.X(), c.up.X(), c.back.X(), 0,
		c.side.Y(), c.up.Y(), c.back.Y(), 0,
		c.side.Z(), c.up.Z(), c.back.Z(), 0,
		-c.side.Dot(p), -c.up.Dot(p), -c.back.Dot(p), 1,
	}
}

// Projection returns a right handed perspective projection with depth in
// [0, 1] and Y pointing down in clip space.
func (c *Camera) Projection() mgl32.Mat4 {
	f := float32(1 / math.Tan(float64(mgl32.DegToRad(FieldOfView))/2))

	var m mgl32.Mat4
	m[0] = f / c.aspect
	m[5] = -f
	m[10] = Far / (Near - Far)
	m[11] = -1
	m[14] = Near * Far / (Near - Far)

	return m
}
