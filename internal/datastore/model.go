// Package datastore archives correlation results in SQLite or MySQL
// through gorm.
package datastore

import (
	"time"

	"github.com/corrlab/corrbuf/internal/correlator"
)

// ResultRecord is one archived correlation result.
type ResultRecord struct {
	ID        uint                  `gorm:"primaryKey"`
	Time      time.Time             `gorm:"column:observed_at;index;not null"`
	Channel   int                   `gorm:"index:idx_result_key;not null"`
	Beam      int                   `gorm:"index:idx_result_key;not null"`
	Sequence  uint64                `gorm:"not null"`
	Samples   int                   `gorm:"not null"`
	Present   []bool                `gorm:"serializer:json"`
	Power     []float64             `gorm:"serializer:json"`
	Baselines []correlator.Baseline `gorm:"serializer:json"`
}

// TableName pins the table name regardless of naming strategy.
func (ResultRecord) TableName() string { return "correlation_results" }

func recordFromResult(r *correlator.Result) ResultRecord {
	return ResultRecord{
		Time:      r.Time,
		Channel:   r.Channel,
		Beam:      r.Beam,
		Sequence:  r.Sequence,
		Samples:   r.Samples,
		Present:   r.Present,
		Power:     r.Power,
		Baselines: r.Pairs,
	}
}

func (rec *ResultRecord) result() correlator.Result {
	return correlator.Result{
		Time:     rec.Time,
		Channel:  rec.Channel,
		Beam:     rec.Beam,
		Sequence: rec.Sequence,
		Samples:  rec.Samples,
		Present:  rec.Present,
		Power:    rec.Power,
		Pairs:    rec.Baselines,
	}
}
