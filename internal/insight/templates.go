package insight

import (
	"fmt"
	"sort"
)

// #region titles

const (
	TitleShortResponse = "Narrative asymmetry in normative model responses"
	TitleLargeGap      = "Substantial divergence in narrative length between models"
	TitleStrategy      = "Differences in narrative strategies of language models"

	// WhyItMatters is attached to every insight.
	WhyItMatters = "It points to different default narrative strategies of the models in normative responses."

	// FixedMetaInsight is the run-level summary sentence.
	FixedMetaInsight = "The top-ranked questions concentrate on normative reactions of digital platforms. " +
		"This suggests that this type of question most often reveals differences in the default " +
		"narrative strategies of language models."
)

// largeGapRatio is the gap ratio above which the large-gap title applies.
const largeGapRatio = 10.0

// Title picks the insight title. Lookup order: any short response, then a
// gap ratio above 10, then the default.
func Title(shortResponses int, gap *float64) string {
	if shortResponses > 0 {
		return TitleShortResponse
	}
	if gap != nil && *gap > largeGapRatio {
		return TitleLargeGap
	}
	return TitleStrategy
}

// #endregion titles

// #region narrative

// FormatGap renders a gap ratio as "6.00×", or "undefined" when nil.
func FormatGap(gap *float64) string {
	if gap == nil {
		return "undefined"
	}
	return fmt.Sprintf("%.2f×", *gap)
}

// Narrative interpolates the computed numbers into the fixed insight sentence.
func Narrative(spread int, gap *float64, shortest, longest string) string {
	return fmt.Sprintf(
		"The question reveals a %d-word difference in response length (max/min ratio %s). "+
			"%s answers most briefly, while %s develops the topic the most. "+
			"The presence of a short response suggests caution or a restricted narrative.",
		spread, FormatGap(gap), shortest, longest,
	)
}

// #endregion narrative

// #region meta-insight

// SectionTally counts sections across the selected insights and returns the
// most frequent one (ties go to the lexicographically smaller section).
func SectionTally(sections []string) (map[string]int, string) {
	counts := make(map[string]int, len(sections))
	for _, s := range sections {
		counts[s]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dominant := ""
	best := 0
	for _, k := range keys {
		if counts[k] > best {
			dominant, best = k, counts[k]
		}
	}
	return counts, dominant
}

// MetaInsight returns the run-level sentence. The section tally travels
// separately as section_counts.
func MetaInsight() string {
	return FixedMetaInsight
}

// #endregion meta-insight
