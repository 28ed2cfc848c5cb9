package summarizer

import (
	"strings"
)

// Summary is the structured output of a summarization run. Raw always holds
// the model's full response, so nothing is lost when parsing comes up short.
type Summary struct {
	TLDR      string
	Takeaways []string
	Quotes    []string
	Topics    []string
	Raw       string
}

// Text renders the summary back into its canonical text form for storage.
func (s *Summary) Text() string {
	if s.TLDR == "" {
		return s.Raw
	}

	var b strings.Builder
	b.WriteString("TL;DR: ")
	b.WriteString(s.TLDR)
	writeSection(&b, "Takeaways", s.Takeaways)
	writeSection(&b, "Quotes", s.Quotes)
	writeSection(&b, "Topics", s.Topics)
	return b.String()
}

func writeSection(b *strings.Builder, name string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(name)
	b.WriteString(":")
	for _, item := range items {
		b.WriteString("\n- ")
		b.WriteString(item)
	}
}

// parseSummary extracts the TL;DR line and the bulleted sections from the
// model response. Unrecognized lines are ignored, and a response that does
// not match the format at all still comes back with Raw populated.
func parseSummary(raw string) *Summary {
	summary := &Summary{Raw: strings.TrimSpace(raw)}

	var section *[]string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "TL;DR:"):
			summary.TLDR = strings.TrimSpace(strings.TrimPrefix(line, "TL;DR:"))
			section = nil
		case strings.EqualFold(line, "Takeaways:"):
			section = &summary.Takeaways
		case strings.EqualFold(line, "Quotes:"):
			section = &summary.Quotes
		case strings.EqualFold(line, "Topics:"):
			section = &summary.Topics
		case strings.HasPrefix(line, "- ") && section != nil:
			if item := strings.TrimSpace(strings.TrimPrefix(line, "- ")); item != "" {
				*section = append(*section, item)
			}
		case summary.TLDR != "" && section == nil:
			// continuation of a multi-line TL;DR
			summary.TLDR += " " + line
		}
	}

	return summary
}
