package model

import "time"

// StageCount records how many rows entered and left a pipeline stage.
type StageCount struct {
	Stage   string
	RowsIn  int
	RowsOut int
}

// Run describes one completed pipeline execution.
type Run struct {
	ReferenceTime time.Time
	StartedAt     time.Time
	Coerced       map[Field]int
	ID            string
	Source        string
	Stages        []StageCount
	Duration      time.Duration
	Contamination float64
	Seed          int64
	Anomalies     int
	Normals       int
}

// Total returns the number of scored rows.
func (r Run) Total() int {
	return r.Anomalies + r.Normals
}

// StageRows returns the output row count of the named stage, or -1.
func (r Run) StageRows(stage string) int {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s.RowsOut
		}
	}
	return -1
}
