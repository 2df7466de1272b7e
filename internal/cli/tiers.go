package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/chronoverse/chronoverse/internal/domain/tier"
	"github.com/chronoverse/chronoverse/internal/domain/types"
)

// Execute runs the tiers command.
func (c *TiersCommand) Execute(_ []string) error {
	all := tier.All()
	out := writer(c.out)

	if jsonOutput(c.globals) {
		infos := make([]types.TierInfo, len(all))
		for i, t := range all {
			infos[i] = types.FromTier(t)
		}
		return writeJSON(out, infos)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tMIN RANGE\tBUCKET\tTHRESHOLD\tCATEGORIES")
	for _, t := range all {
		cats := "all"
		if t.Filtered() {
			cats = strings.Join(t.Categories, ", ")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", t.ID, year(t.MinRangeYears), year(t.BucketSizeYears), t.ClusterThreshold, cats)
	}
	return w.Flush()
}
