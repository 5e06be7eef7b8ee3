// model.go defines the persisted data model for batch runs and their results.
package datastore

import "time"

// BatchRun records one invocation of the batch dispatcher.
type BatchRun struct {
	ID            uint   `gorm:"primaryKey"`
	RunID         string `gorm:"uniqueIndex;size:36"` // uuid assigned by the runner
	Node          string // name of the fieldscan node that ran the batch
	StartedAt     time.Time
	CompletedAt   time.Time
	Workers       int
	MinConfidence float64
	FilesTotal    int
	FilesFailed   int
	Detections    int
	Results       []Result `gorm:"foreignKey:RunID;references:RunID;constraint:OnDelete:CASCADE"`
}

// Result is one detection row attributed to a run, mirroring the CSV output.
type Result struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"index;size:36;not null"`
	File       string `gorm:"index"` // base name of the source recording
	Start      float64
	End        float64
	Label      string `gorm:"index"`
	Confidence float64
}
