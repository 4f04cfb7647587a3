package workflow

import (
	"fmt"
	"strings"

	"github.com/venturahq/ventura/internal/domain"
)

// BuildPriorContext renders earlier phase findings for the next specialist,
// newest last, truncated to maxBytes. Later phases matter more, so when the
// budget is tight the earliest outputs are dropped first.
func BuildPriorContext(phases []domain.PhaseResult, maxBytes int) string {
	if len(phases) == 0 {
		return ""
	}
	if maxBytes <= 0 {
		maxBytes = 60000
	}

	sections := make([]string, 0, len(phases))
	for _, p := range phases {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("## Phase %d: %s (%s, confidence %.2f)\n", p.PhaseIndex, p.PhaseName, p.Status, p.Confidence))
		b.WriteString(strings.TrimSpace(p.Output))
		b.WriteString("\n")
		sections = append(sections, b.String())
	}

	total := 0
	start := 0
	for i := len(sections) - 1; i >= 0; i-- {
		if total+len(sections[i]) > maxBytes {
			start = i + 1
			break
		}
		total += len(sections[i])
	}
	if start >= len(sections) {
		// Even the latest section alone is over budget; keep its tail.
		last := sections[len(sections)-1]
		return "...[context truncated]\n" + last[len(last)-maxBytes:]
	}

	var out strings.Builder
	if start > 0 {
		out.WriteString("...[earlier phases truncated]\n")
	}
	for _, s := range sections[start:] {
		out.WriteString(s)
		out.WriteString("\n")
	}
	return strings.TrimRight(out.String(), "\n")
}
