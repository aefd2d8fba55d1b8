package health

import (
	"fmt"
	"net"
	"strconv"

	"github.com/latwatchhq/agent/pkg/types"
)

// Evaluate inspects the run's results and returns a warning per target
// that shows an outage or degraded reachability. A target whose
// attempts all failed is the primary outage signal; a run that took no
// samples at all is flagged so a misconfigured window is visible.
func Evaluate(results []types.TargetResult) []string {
	warnings := make([]string, 0, len(results))
	for _, tr := range results {
		address := net.JoinHostPort(tr.Target.Host, strconv.Itoa(tr.Target.Port))
		result := tr.Result
		switch {
		case result.TotalSamples == 0:
			warnings = append(warnings, fmt.Sprintf("%s: no samples taken", address))
		case result.SuccessCount == 0:
			warnings = append(warnings, fmt.Sprintf("%s: unreachable for the whole run (%d failed attempts)", address, result.FailCount))
		case result.FailCount > 0:
			warnings = append(warnings, fmt.Sprintf("%s: %d of %d attempts failed", address, result.FailCount, result.TotalSamples))
		}
	}
	return warnings
}
