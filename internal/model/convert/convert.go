// Package convert maps run and statistic content to database records.
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/mucoll/hitstats/internal/model"
	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
	"gorm.io/datatypes"
)

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		// callers pass strings, finite floats and axes only
		panic(fmt.Sprintf("convert: %v", err))
	}
	return datatypes.JSON(b)
}

// RunToRecord converts a run description. The record ID is left for the
// database to assign.
func RunToRecord(r *core.Run) model.RunRecord {
	return model.RunRecord{
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Inputs:     mustJSON(nonNilStrings(r.Inputs)),
		Drivers:    mustJSON(nonNilStrings(r.Drivers)),
		Output:     r.Output,
		Events:     r.Events,
		Skipped:    r.Skipped,
		MaxEvents:  r.MaxEvents,
		TMin:       r.TMin,
		TMax:       r.TMax,
		Cutoffs:    mustJSON(nonNilFloats(r.Cutoffs)),
		AppVersion: r.AppVersion,
	}
}

type axes struct {
	X stats.Axis `json:"x"`
	Y stats.Axis `json:"y"`
}

// StatToRecord converts the definition and totals of s. Columns lists the
// numeric columns followed by the text columns.
func StatToRecord(runID uint, order int, s stats.Stat) model.StatRecord {
	cols := make([]string, 0, len(s.Def.Columns)+len(s.Def.TextColumns))
	cols = append(cols, s.Def.Columns...)
	cols = append(cols, s.Def.TextColumns...)
	return model.StatRecord{
		RunID:   runID,
		Name:    s.Def.Name,
		Title:   s.Def.Title,
		Kind:    s.Def.Kind.String(),
		Axes:    mustJSON(axes{X: s.Def.X, Y: s.Def.Y}),
		Columns: mustJSON(cols),
		Entries: s.Entries,
		SumW:    s.SumW,
		Outflow: s.Outflow,
		Order:   order,
	}
}

// StatBins returns the non-empty bins of a histogram or profile.
func StatBins(statID uint, s stats.Stat) []model.BinRecord {
	var out []model.BinRecord
	for i, w := range s.Bins {
		var wy, wy2 float64
		if s.SumWY != nil {
			wy, wy2 = s.SumWY[i], s.SumWY2[i]
		}
		if w == 0 && wy == 0 && wy2 == 0 {
			continue
		}
		out = append(out, model.BinRecord{
			StatID:  statID,
			Index:   i,
			Content: w,
			SumWY:   wy,
			SumWY2:  wy2,
		})
	}
	return out
}

// StatRows returns the rows of an n-tuple.
func StatRows(statID uint, s stats.Stat) []model.TupleRow {
	out := make([]model.TupleRow, len(s.Rows))
	for i, row := range s.Rows {
		var text []string
		if i < len(s.Text) {
			text = s.Text[i]
		}
		out[i] = model.TupleRow{
			StatID: statID,
			Row:    i,
			Values: mustJSON(stats.Nullable(row)),
			Text:   mustJSON(nonNilStrings(text)),
		}
	}
	return out
}

// RecordToAxes decodes the axes stored with a statistic.
func RecordToAxes(r model.StatRecord) (x, y stats.Axis, err error) {
	var a axes
	if err := json.Unmarshal(r.Axes, &a); err != nil {
		return x, y, fmt.Errorf("stat %s axes: %w", r.Name, err)
	}
	return a.X, a.Y, nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
