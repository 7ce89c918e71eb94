package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Discovery Filter Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Survey: %s | Nights: %d-%d\n\n", r.Survey, r.StartNight, r.EndNight))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Decisions | %d |\n", r.Summary.Decisions))
	sb.WriteString(fmt.Sprintf("| Candidates | %d |\n", r.Summary.Candidates))
	sb.WriteString(fmt.Sprintf("| Candidate Rate | %.4f |\n", r.Summary.CandidateRate))
	sb.WriteString(fmt.Sprintf("| INTRA_NIGHT | %d |\n", r.Summary.IntraNight))
	sb.WriteString(fmt.Sprintf("| INTER_NIGHT | %d |\n", r.Summary.InterNight))
	sb.WriteString(fmt.Sprintf("| NO_DISCOVERY | %d |\n", r.Summary.NoDiscovery))
	if r.Summary.FirstDate != "" {
		sb.WriteString(fmt.Sprintf("| First Decision | %s |\n", r.Summary.FirstDate))
		sb.WriteString(fmt.Sprintf("| Last Decision | %s |\n", r.Summary.LastDate))
	}
	sb.WriteString("\n")

	// Rejection Reasons
	sb.WriteString("## Rejection Reasons\n\n")
	if len(r.Reasons) > 0 {
		sb.WriteString("| Reason | Count |\n")
		sb.WriteString("|--------|-------|\n")
		for _, rc := range r.Reasons {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", rc.Reason, rc.Count))
		}
	} else {
		sb.WriteString("No rejections recorded.\n")
	}
	sb.WriteString("\n")

	// Nightly Activity
	sb.WriteString("## Nightly Activity\n\n")
	if len(r.Nights) > 0 {
		sb.WriteString("| Night | Date | Decisions | Candidates | Intra | Inter | NoDiscovery |\n")
		sb.WriteString("|-------|------|-----------|------------|-------|-------|-------------|\n")
		for _, n := range r.Nights {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %d | %d | %d |\n",
				n.Night, n.Date, n.Decisions, n.Candidates,
				n.IntraNight, n.InterNight, n.NoDiscovery))
		}
	} else {
		sb.WriteString("No decisions in range.\n")
	}
	sb.WriteString("\n")

	// Top Objects
	sb.WriteString("## Top Objects\n\n")
	if len(r.TopObjects) > 0 {
		sb.WriteString("| Object | Decisions | Candidates |\n")
		sb.WriteString("|--------|-----------|------------|\n")
		for _, o := range r.TopObjects {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", o.ObjectID, o.Decisions, o.Candidates))
		}
	} else {
		sb.WriteString("No objects evaluated.\n")
	}
	sb.WriteString("\n")

	// Pipeline Counters (present only for in-server generation)
	if r.Runtime != nil {
		sb.WriteString("## Pipeline Counters\n\n")
		sb.WriteString("| Counter | Value |\n")
		sb.WriteString("|---------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Processed | %d |\n", r.Runtime.Processed))
		sb.WriteString(fmt.Sprintf("| Duplicates | %d |\n", r.Runtime.Duplicates))
		sb.WriteString(fmt.Sprintf("| Malformed | %d |\n", r.Runtime.Malformed))
		sb.WriteString(fmt.Sprintf("| Published | %d |\n", r.Runtime.Published))
		sb.WriteString("\n")
	}

	return sb.String()
}
