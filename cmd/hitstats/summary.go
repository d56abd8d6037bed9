package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mucoll/hitstats/internal/stats"
	"github.com/mucoll/hitstats/pkg/core"
)

// summary is what a finished run reports on stdout.
type summary struct {
	run     *core.Run
	stats   []stats.Stat
	output  string
	logPath string
	points  int
}

func (s *summary) print(w io.Writer) {
	byKind := map[stats.Kind]int{}
	var entries int64
	for _, st := range s.stats {
		byKind[st.Def.Kind]++
		entries += st.Entries
	}
	kinds := make([]string, 0, len(byKind))
	for _, k := range []stats.Kind{stats.Hist1D, stats.Hist2D, stats.Profile, stats.NTuple} {
		if n := byKind[k]; n > 0 {
			kinds = append(kinds, fmt.Sprintf("%d %s", n, k))
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Events:\t%d processed, %d skipped\n", s.run.Events, s.run.Skipped)
	fmt.Fprintf(tw, "Inputs:\t%d\n", len(s.run.Inputs))
	fmt.Fprintf(tw, "Drivers:\t%s\n", strings.Join(s.run.Drivers, ", "))
	fmt.Fprintf(tw, "Statistics:\t%d (%s), %d entries\n", len(s.stats), strings.Join(kinds, ", "), entries)
	if s.output != "" {
		fmt.Fprintf(tw, "Output:\t%s\n", s.output)
	}
	if s.points > 0 {
		fmt.Fprintf(tw, "Metrics:\t%d points\n", s.points)
	}
	fmt.Fprintf(tw, "Log:\t%s\n", s.logPath)
	fmt.Fprintf(tw, "Elapsed:\t%s\n", s.run.EndTime.Sub(s.run.StartTime).Round(time.Millisecond))
	tw.Flush()
}
