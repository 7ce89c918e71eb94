package reporting

import (
	"fmt"
	"strings"
)

// RenderNightsCSV renders per-night buckets as CSV string.
func RenderNightsCSV(nights []NightBucket) string {
	var sb strings.Builder

	sb.WriteString("night,date,decisions,candidates,intra_night,inter_night,no_discovery\n")
	for _, n := range nights {
		sb.WriteString(fmt.Sprintf("%d,%s,%d,%d,%d,%d,%d\n",
			n.Night, n.Date, n.Decisions, n.Candidates,
			n.IntraNight, n.InterNight, n.NoDiscovery))
	}
	return sb.String()
}

// RenderObjectsCSV renders the busiest objects as CSV string.
func RenderObjectsCSV(objects []ObjectCount) string {
	var sb strings.Builder

	sb.WriteString("object_id,decisions,candidates\n")
	for _, o := range objects {
		sb.WriteString(fmt.Sprintf("%s,%d,%d\n", o.ObjectID, o.Decisions, o.Candidates))
	}
	return sb.String()
}
