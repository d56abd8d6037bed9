package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"RunRecord", &RunRecord{}, "runs"},
		{"StatRecord", &StatRecord{}, "stats"},
		{"BinRecord", &BinRecord{}, "stat_bins"},
		{"TupleRow", &TupleRow{}, "tuple_rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels(t *testing.T) {
	assert.Len(t, DatabaseModels, 4)
	_, ok := DatabaseModels[0].(*RunRecord)
	assert.True(t, ok, "runs migrate first")
}
