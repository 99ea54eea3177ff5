// Package telemetry records per-tick flight frames and summarizes flights.
package telemetry

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wricardo/lunar-lander/game/engine"
)

// Frame is one tick of a flight as exported to CSV
type Frame struct {
	Tick      uint64  `json:"tick" csv:"tick"`
	X         float64 `json:"x" csv:"x"`
	Y         float64 `json:"y" csv:"y"`
	VX        float64 `json:"vx" csv:"vx"`
	VY        float64 `json:"vy" csv:"vy"`
	Angle     float64 `json:"angle" csv:"angle"`
	Thrusting bool    `json:"thrusting" csv:"thrusting"`
	Phase     string  `json:"phase" csv:"phase"`
}

// FrameFromState converts a simulation state into a frame
func FrameFromState(st engine.State) Frame {
	return Frame{
		Tick:      st.Tick,
		X:         st.Ship.Position.X,
		Y:         st.Ship.Position.Y,
		VX:        st.Ship.Velocity.X,
		VY:        st.Ship.Velocity.Y,
		Angle:     st.Ship.Angle,
		Thrusting: st.Ship.Thrusting,
		Phase:     string(st.Phase),
	}
}

// Recorder keeps the most recent frames of the current flight, up to a limit.
// Once full it overwrites the oldest frame in place.
// It is not safe for concurrent use; sessions guard it with their own lock.
type Recorder struct {
	limit  int
	frames []Frame
	head   int // index of the oldest frame once the buffer is full
}

// NewRecorder creates a recorder keeping at most limit frames.
// A non-positive limit uses engine.MaxTelemetryFrames.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = engine.MaxTelemetryFrames
	}
	return &Recorder{limit: limit}
}

// Record appends a frame, evicting the oldest once the limit is reached
func (r *Recorder) Record(st engine.State) {
	frame := FrameFromState(st)
	if len(r.frames) < r.limit {
		r.frames = append(r.frames, frame)
		return
	}
	r.frames[r.head] = frame
	r.head = (r.head + 1) % r.limit
}

// Reset forgets every frame
func (r *Recorder) Reset() {
	r.frames = r.frames[:0]
	r.head = 0
}

// Len returns the number of frames held
func (r *Recorder) Len() int {
	return len(r.frames)
}

// Frames returns a copy of the recorded frames, oldest first
func (r *Recorder) Frames() []Frame {
	out := make([]Frame, 0, len(r.frames))
	out = append(out, r.frames[r.head:]...)
	return append(out, r.frames[:r.head]...)
}

// WriteCSV writes every recorded frame with a header row
func (r *Recorder) WriteCSV(w io.Writer) error {
	return WriteFramesCSV(w, r.Frames())
}

// WriteFramesCSV writes frames with a header row
func WriteFramesCSV(w io.Writer, frames []Frame) error {
	if frames == nil {
		frames = []Frame{}
	}
	if err := gocsv.Marshal(frames, w); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// CSVWriter streams frames to w, writing the header only once
type CSVWriter struct {
	w             io.Writer
	headerWritten bool
}

// NewCSVWriter creates a streaming frame writer
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: w}
}

// Write appends frames to the stream
func (c *CSVWriter) Write(frames ...Frame) error {
	if len(frames) == 0 {
		return nil
	}

	if !c.headerWritten {
		if err := gocsv.Marshal(frames, c.w); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		c.headerWritten = true
		return nil
	}

	if err := gocsv.MarshalWithoutHeaders(frames, c.w); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// FlightStats summarizes recorded frames
type FlightStats struct {
	Frames      int     `json:"frames"`
	MeanSpeed   float64 `json:"mean_speed"`
	MaxSpeed    float64 `json:"max_speed"`
	MeanVY      float64 `json:"mean_vy"`
	StdDevVY    float64 `json:"stddev_vy"`
	ThrustRatio float64 `json:"thrust_ratio"`
}

// Summary computes statistics over the recorded frames
func (r *Recorder) Summary() FlightStats {
	return Summarize(r.Frames())
}

// Summarize computes statistics over frames
func Summarize(frames []Frame) FlightStats {
	stats := FlightStats{Frames: len(frames)}
	if len(frames) == 0 {
		return stats
	}

	speeds := make([]float64, len(frames))
	vys := make([]float64, len(frames))
	thrusting := 0
	for i, f := range frames {
		speeds[i] = engine.Speed(engine.Vec2{X: f.VX, Y: f.VY})
		vys[i] = f.VY
		if f.Thrusting {
			thrusting++
		}
	}

	stats.MeanSpeed = stat.Mean(speeds, nil)
	stats.MaxSpeed = floats.Max(speeds)
	stats.MeanVY = stat.Mean(vys, nil)
	if len(vys) > 1 {
		stats.StdDevVY = stat.StdDev(vys, nil)
	}
	stats.ThrustRatio = float64(thrusting) / float64(len(frames))
	return stats
}

// HistoryStats summarizes a session's completed flights
type HistoryStats struct {
	Flights           int     `json:"flights"`
	Landings          int     `json:"landings"`
	Crashes           int     `json:"crashes"`
	SuccessRate       float64 `json:"success_rate"`
	MeanTouchdownVY   float64 `json:"mean_touchdown_vy"`
	StdDevTouchdownVY float64 `json:"stddev_touchdown_vy"`
	MeanTouchdownVX   float64 `json:"mean_touchdown_vx"`
	MeanFlightTicks   float64 `json:"mean_flight_ticks"`
	BestLandingTicks  uint64  `json:"best_landing_ticks,omitempty"`
}

// SummarizeHistory computes statistics over completed flights
func SummarizeHistory(records []engine.FlightRecord) HistoryStats {
	stats := HistoryStats{Flights: len(records)}
	if len(records) == 0 {
		return stats
	}

	vys := make([]float64, len(records))
	vxs := make([]float64, len(records))
	ticks := make([]float64, len(records))
	for i, rec := range records {
		vys[i] = rec.Touchdown.VelocityY
		vxs[i] = rec.Touchdown.VelocityX
		ticks[i] = float64(rec.Ticks)

		switch rec.Phase {
		case engine.Landed:
			stats.Landings++
			if stats.BestLandingTicks == 0 || rec.Ticks < stats.BestLandingTicks {
				stats.BestLandingTicks = rec.Ticks
			}
		case engine.Crashed:
			stats.Crashes++
		}
	}

	stats.SuccessRate = float64(stats.Landings) / float64(len(records))
	stats.MeanTouchdownVY = stat.Mean(vys, nil)
	if len(vys) > 1 {
		stats.StdDevTouchdownVY = stat.StdDev(vys, nil)
	}
	stats.MeanTouchdownVX = stat.Mean(vxs, nil)
	stats.MeanFlightTicks = stat.Mean(ticks, nil)
	return stats
}
