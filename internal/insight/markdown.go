package insight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danielpatrickdp/biaslab/go-auditor/internal/audit"
)

// RenderMarkdown builds the human-readable insight document. It reads only
// from set, so the Markdown and JSON artifacts cannot disagree.
func RenderMarkdown(set *audit.InsightSet) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# BiasLab: Top %d insights (rule-based)\n\n", len(set.Top))
	fmt.Fprintf(&b, "**Run:** `%s`\n\n", set.RunID)
	b.WriteString("## Meta-insight\n\n")
	b.WriteString(set.MetaInsight + "\n\n")

	if len(set.SectionCounts) > 0 {
		sections := make([]string, 0, len(set.SectionCounts))
		for s := range set.SectionCounts {
			sections = append(sections, s)
		}
		sort.Strings(sections)
		parts := make([]string, 0, len(sections))
		for _, s := range sections {
			parts = append(parts, fmt.Sprintf("`%s` %d", s, set.SectionCounts[s]))
		}
		fmt.Fprintf(&b, "**Sections:** %s\n\n", strings.Join(parts, " · "))
	}
	b.WriteString("---\n\n")

	for _, ins := range set.Top {
		fmt.Fprintf(&b, "## %d. %s\n\n", ins.Rank, ins.Title)
		fmt.Fprintf(&b, "**ID:** `%s`  \n", ins.QuestionID)
		fmt.Fprintf(&b, "**Section:** `%s`\n\n", ins.Section)
		fmt.Fprintf(&b, "**Question:** %s\n\n", ins.Prompt)
		fmt.Fprintf(&b, "**Metrics:** spread=%d words · gap=%s · short=%d · score=%.4f  \n",
			ins.SpreadWords, FormatGap(ins.GapRatio), ins.ShortResponses, ins.Score)
		fmt.Fprintf(&b, "**Shortest:** %s  \n", ins.ShortestModel)
		fmt.Fprintf(&b, "**Longest:** %s\n\n", ins.LongestModel)
		fmt.Fprintf(&b, "**Insight:** %s\n\n", ins.Insight)
		fmt.Fprintf(&b, "**Why it matters:** %s\n\n---\n\n", ins.WhyItMatters)
	}

	return b.String()
}
