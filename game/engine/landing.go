package engine

import "math"

// Verdict is the landing evaluator's judgment for one tick
type Verdict string

const (
	NoJudgment Verdict = "none"
	Success    Verdict = "success"
	Failure    Verdict = "failure"
)

// Criteria names reported in Touchdown.Failed
const (
	CriterionVerticalSpeed   = "vertical_speed"
	CriterionHorizontalSpeed = "horizontal_speed"
	CriterionAngle           = "angle"
)

// Touchdown describes the conditions a collision was judged on
type Touchdown struct {
	Verdict         Verdict  `json:"verdict" csv:"verdict"`
	VelocityX       float64  `json:"velocity_x" csv:"velocity_x"`
	VelocityY       float64  `json:"velocity_y" csv:"velocity_y"`
	Angle           float64  `json:"angle" csv:"angle"`
	NormalizedAngle float64  `json:"normalized_angle" csv:"normalized_angle"`
	Failed          []string `json:"failed,omitempty" csv:"-"`
}

// NormalizeAngle maps any angle in degrees to [0, 360) regardless of sign
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// SafeAngle reports whether the normalized angle is inside the upright tolerance
// window, which straddles 0/360
func SafeAngle(angle, maxAngle float64) bool {
	a := NormalizeAngle(angle)
	return a < maxAngle || a > 360-maxAngle
}

// Evaluate judges a collision. Without a collision there is no judgment.
func Evaluate(velocity Vec2, angle float64, collided bool, p Physics) Verdict {
	return Assess(velocity, angle, collided, p).Verdict
}

// Assess is Evaluate plus the touchdown details and the failed criteria
func Assess(velocity Vec2, angle float64, collided bool, p Physics) Touchdown {
	if !collided {
		return Touchdown{Verdict: NoJudgment}
	}

	td := Touchdown{
		VelocityX:       velocity.X,
		VelocityY:       velocity.Y,
		Angle:           angle,
		NormalizedAngle: NormalizeAngle(angle),
	}

	if !(math.Abs(velocity.Y) < p.MaxLandingSpeedV) {
		td.Failed = append(td.Failed, CriterionVerticalSpeed)
	}
	if !(math.Abs(velocity.X) < p.MaxLandingSpeedH) {
		td.Failed = append(td.Failed, CriterionHorizontalSpeed)
	}
	if !SafeAngle(angle, p.MaxLandingAngleDeg) {
		td.Failed = append(td.Failed, CriterionAngle)
	}

	td.Verdict = Success
	if len(td.Failed) > 0 {
		td.Verdict = Failure
	}
	return td
}
