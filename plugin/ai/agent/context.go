package agent

import (
	"fmt"
	"strings"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/rag"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

const (
	// DefaultContextLimit is the number of ranked items gathered for a unit.
	DefaultContextLimit = 10

	promptContextItems   = 3
	promptContextExcerpt = 200
)

// buildSystemPrompt completes a unit's base prompt with what is known about the user.
func buildSystemPrompt(base string, profile *store.UserProfile) string {
	var b strings.Builder
	b.WriteString(base)
	if profile != nil {
		if profile.FirstName != "" {
			fmt.Fprintf(&b, " The user's name is %s.", profile.FirstName)
		}
		if len(profile.Expertise) > 0 {
			fmt.Fprintf(&b, " Their expertise: %s.", strings.Join(profile.Expertise, ", "))
		}
	}
	b.WriteString(" Provide accurate, helpful responses based on the user's research context.")
	return b.String()
}

// withContext appends the rendered context block to prompt. Empty context
// leaves the prompt untouched.
func withContext(prompt string, agg *rag.AggregatedContext) string {
	block := renderContext(agg)
	if block == "" {
		return prompt
	}
	return prompt + "\n\n--- Context ---\n" + block
}

func renderContext(agg *rag.AggregatedContext) string {
	if agg == nil {
		return ""
	}
	var parts []string

	if agg.Profile != nil && len(agg.Profile.ResearchInterests) > 0 {
		parts = append(parts, "Research Interests: "+strings.Join(agg.Profile.ResearchInterests, ", "))
	}

	if len(agg.WeightedResults) > 0 {
		parts = append(parts, "\n--- Relevant Research Context ---")
		for i, r := range agg.WeightedResults {
			if i == promptContextItems {
				break
			}
			parts = append(parts, fmt.Sprintf("%d. %s: %s", i+1, r.Title, excerpt(r.Content, promptContextExcerpt)))
		}
	}

	var papers []string
	for _, r := range agg.WeightedResults {
		if r.Source != store.SourcePaper || len(papers) == promptContextItems {
			continue
		}
		journal, _ := r.Metadata["journal"].(string)
		if journal == "" {
			journal = "Unknown"
		}
		year := "Unknown"
		if y, ok := r.Metadata["year"].(int); ok && y > 0 {
			year = fmt.Sprint(y)
		}
		papers = append(papers, fmt.Sprintf("%d. %s (%s, %s)", len(papers)+1, r.Title, journal, year))
	}
	if len(papers) > 0 {
		parts = append(parts, "\n--- Recent Papers ---")
		parts = append(parts, papers...)
	}

	return strings.Join(parts, "\n")
}

// filterSources keeps the results whose record type is one of sources.
// The result is a copy; agg is not modified.
func filterSources(agg *rag.AggregatedContext, sources []store.SourceType) *rag.AggregatedContext {
	if agg == nil {
		return nil
	}
	allowed := map[store.SourceType]bool{}
	for _, s := range sources {
		allowed[s] = true
	}

	filtered := *agg
	filtered.WeightedResults = nil
	used := map[store.SourceType]bool{}
	filtered.SourcesUsed = nil
	total := 0.0
	for _, r := range agg.WeightedResults {
		if !allowed[r.Origin] && !allowed[r.Source] {
			continue
		}
		filtered.WeightedResults = append(filtered.WeightedResults, r)
		total += r.WeightedScore
		if !used[r.Source] {
			used[r.Source] = true
			filtered.SourcesUsed = append(filtered.SourcesUsed, r.Source)
		}
	}
	filtered.TotalRelevance = 0
	if n := len(filtered.WeightedResults); n > 0 {
		filtered.TotalRelevance = total / float64(n)
	}
	return &filtered
}

func excerpt(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}
