package sweep

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a sweep result as a Markdown table, best
// candidate yield first.
func RenderMarkdown(r *Result) string {
	var sb strings.Builder

	sb.WriteString("# Clipping Threshold Sweep\n\n")
	sb.WriteString(fmt.Sprintf("Survey: %s | Nights: %d-%d | Alerts: %d | Variants: %d\n\n",
		r.Survey, r.StartNight, r.EndNight, r.Total, len(r.Variants)))

	sb.WriteString("| Sigma | Crop | Det | Clean | Candidates | Intra | Inter | NoDiscovery | Malformed |\n")
	sb.WriteString("|-------|------|-----|-------|------------|-------|-------|-------------|-----------|\n")
	for _, v := range r.Variants {
		sb.WriteString(fmt.Sprintf("| %g | %d | %d | %d | %d | %d | %d | %d | %d |\n",
			v.Config.Sigma, v.Config.CropRadiusPixels,
			v.Config.MaxPixelsClippedForDetection, v.Config.MinPixelsClippedForNonDetection,
			v.Candidates, v.IntraNight, v.InterNight, v.NoDiscovery, v.Malformed))
	}
	sb.WriteString("\n")

	if len(r.Variants) > 0 {
		best := r.Variants[0]
		sb.WriteString(fmt.Sprintf("Best yield: %s with %d candidates.\n", best.Label, best.Candidates))
	}

	return sb.String()
}
