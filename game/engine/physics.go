package engine

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Integrate advances the ship by one tick. It is a pure function of its inputs.
//
// Rotation is applied left then right, so holding both keys cancels out by
// sequential application rather than by a special case. Gravity always applies;
// thrust pushes along the nose, where angle 0 points up. Position uses simple
// Euler integration with the updated velocity.
func Integrate(ship Ship, cmds Commands, p Physics) Ship {
	next := ship

	if cmds.RotateLeft {
		next.Angle -= p.RotationSpeed
	}
	if cmds.RotateRight {
		next.Angle += p.RotationSpeed
	}

	vel := ship.Velocity.vec()
	vel.Y += p.Gravity

	if cmds.Thrust {
		vel = r2.Add(vel, r2.Scale(p.ThrustPower, ThrustDirection(next.Angle).vec()))
	}

	next.Velocity = fromR2(vel)
	next.Position = fromR2(r2.Add(ship.Position.vec(), vel))
	next.Thrusting = cmds.Thrust

	return next
}

// ThrustDirection returns the unit vector the nose points at for an angle in degrees
func ThrustDirection(angle float64) Vec2 {
	rad := (angle - 90) * math.Pi / 180
	return Vec2{X: math.Cos(rad), Y: math.Sin(rad)}
}

// Speed returns the magnitude of a velocity
func Speed(v Vec2) float64 {
	return r2.Norm(v.vec())
}
