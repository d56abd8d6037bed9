package model

import (
	"time"

	"gorm.io/datatypes"
)

// DatabaseModels lists every table, in migration order.
var DatabaseModels = []interface{}{
	&RunRecord{},
	&StatRecord{},
	&BinRecord{},
	&TupleRow{},
}

// RunRecord is one invocation of the tool.
type RunRecord struct {
	ID         uint           `json:"id" gorm:"primarykey"`
	CreatedAt  time.Time      `json:"createdAt"`
	StartTime  time.Time      `json:"startTime" gorm:"index"`
	EndTime    time.Time      `json:"endTime"`
	Inputs     datatypes.JSON `json:"inputs"`  // []string
	Drivers    datatypes.JSON `json:"drivers"` // []string
	Output     string         `json:"output" gorm:"size:1024"`
	Events     int            `json:"events"`
	Skipped    int            `json:"skipped"`
	MaxEvents  int            `json:"maxEvents"`
	TMin       float64        `json:"tMin"`
	TMax       float64        `json:"tMax"`
	Cutoffs    datatypes.JSON `json:"cutoffs"` // []float64
	AppVersion string         `json:"appVersion" gorm:"size:64"`
}

func (*RunRecord) TableName() string {
	return "runs"
}

// StatRecord holds the definition and totals of one statistic.
type StatRecord struct {
	ID      uint           `json:"id" gorm:"primarykey"`
	RunID   uint           `json:"runId" gorm:"index:idx_stat_run_name,unique"`
	Name    string         `json:"name" gorm:"size:255;index:idx_stat_run_name,unique"`
	Title   string         `json:"title" gorm:"size:255"`
	Kind    string         `json:"kind" gorm:"size:16"`
	Axes    datatypes.JSON `json:"axes"`    // x and y stats.Axis
	Columns datatypes.JSON `json:"columns"` // numeric then text column names
	Entries int64          `json:"entries"`
	SumW    float64        `json:"sumW"`
	Outflow float64        `json:"outflow"` // 2D weight outside the grid
	Order   int            `json:"order"`
	Run     RunRecord      `json:"-" gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

func (*StatRecord) TableName() string {
	return "stats"
}

// BinRecord is one non-empty histogram or profile bin. Index is the flat
// bin number of stats.Stat.Bins: flow bins included in 1D, in-range cells
// only in 2D.
type BinRecord struct {
	ID      uint       `json:"id" gorm:"primarykey"`
	StatID  uint       `json:"statId" gorm:"index"`
	Index   int        `json:"index"`
	Content float64    `json:"content"`
	SumWY   float64    `json:"sumWY"`
	SumWY2  float64    `json:"sumWY2"`
	Stat    StatRecord `json:"-" gorm:"foreignKey:StatID;constraint:OnDelete:CASCADE"`
}

func (*BinRecord) TableName() string {
	return "stat_bins"
}

// TupleRow is one n-tuple row.
type TupleRow struct {
	ID     uint           `json:"id" gorm:"primarykey"`
	StatID uint           `json:"statId" gorm:"index"`
	Row    int            `json:"row"`
	Values datatypes.JSON `json:"values"` // []float64
	Text   datatypes.JSON `json:"text"`   // []string
	Stat   StatRecord     `json:"-" gorm:"foreignKey:StatID;constraint:OnDelete:CASCADE"`
}

func (*TupleRow) TableName() string {
	return "tuple_rows"
}
