package pipeline

import (
	"fmt"
	"io"
)

// Print writes the human-readable end-of-run report.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "run %s finished in %s\n", s.RunID, FormatElapsed(s.Elapsed))
	fmt.Fprintf(w, "  discovered: %d\n", s.Discovered)
	fmt.Fprintf(w, "  completed:  %d\n", len(s.Completed))
	fmt.Fprintf(w, "  failed:     %d\n", len(s.Failed))
	if c := s.Cancelled(); c > 0 {
		fmt.Fprintf(w, "  cancelled:  %d\n", c)
	}

	var lookups, dropped, fallbacks int
	for _, r := range s.Completed {
		lookups += r.Report.Lookups
		dropped += r.Report.FailedLookups()
		fallbacks += r.Report.Fallbacks
	}
	fmt.Fprintf(w, "  lookups:    %d (%d failed)\n", lookups, dropped)
	fmt.Fprintf(w, "  fallbacks:  %d\n", fallbacks)

	for _, r := range s.Failed {
		fmt.Fprintf(w, "  FAILED %s [%s]: %v\n", r.Job.RelPath, r.Kind, r.Err)
	}
}
