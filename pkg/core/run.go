// pkg/core/run.go
package core

import "time"

// Run describes one invocation over a list of input files.
type Run struct {
	ID         uint
	Inputs     []string
	Drivers    []string
	Output     string
	StartTime  time.Time
	EndTime    time.Time
	Events     int
	Skipped    int
	MaxEvents  int
	TMin       float64
	TMax       float64
	Cutoffs    []float64
	AppVersion string
}
