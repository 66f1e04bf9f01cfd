package router

import (
	"regexp"
	"slices"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// rule is one task type classification rule.
type rule struct {
	taskType        TaskType
	patterns        []*regexp.Regexp
	confidence      float64
	requiresContext bool
	complexity      Complexity
	quality         ai.Tier
	speed           ai.Tier
	cost            ai.Tier
	context         *ContextRequirements
	extract         func(text string) map[string]any
}

func (r *rule) matches(text string) bool {
	for _, p := range r.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// patterns compiles case-insensitive expressions.
func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + expr)
	}
	return out
}

var (
	topicPattern      = regexp.MustCompile(`(?i)\b(?:on|about|for|regarding|related to)\s+([^.!?]+)`)
	experimentPattern = regexp.MustCompile(`(?i)\b(?:experiment|study|research).*?\b(?:on|about)\s+([^.!?]+)`)
	fieldPattern      = regexp.MustCompile(`(?i)\b(?:in|for|field of)\s+([^.!?]+)`)
	proposalPattern   = regexp.MustCompile(`(?i)\b(?:for|about|on)\s+([^.!?]+)`)
)

// capture returns a single-key map with the trimmed first group of re, or nil.
func capture(re *regexp.Regexp, key string) func(string) map[string]any {
	return func(text string) map[string]any {
		if v := firstGroup(re, text); v != "" {
			return map[string]any{key: v}
		}
		return nil
	}
}

// defaultRules returns the classification table in declaration order.
// Declaration order breaks confidence ties.
func defaultRules() []*rule {
	return []*rule{
		{
			taskType: TaskPaperFinding,
			patterns: patterns(
				`find.*paper`, `search.*paper`, `look.*for.*paper`, `paper.*about`,
				`research.*paper`, `literature.*review`, `find.*research`,
			),
			confidence: 0.9,
			complexity: ComplexitySimple,
			quality:    ai.TierHigh,
			speed:      ai.SpeedFast,
			cost:       ai.TierMedium,
			extract:    capture(topicPattern, "topic"),
		},
		{
			taskType: TaskAbstractWriting,
			patterns: patterns(
				`write.*abstract`, `generate.*abstract`, `create.*abstract`,
				`abstract.*for`, `summary.*of.*experiment`,
			),
			confidence:      0.95,
			requiresContext: true,
			complexity:      ComplexityModerate,
			quality:         ai.TierHigh,
			speed:           ai.SpeedMedium,
			cost:            ai.TierLow,
			context: &ContextRequirements{
				MinContextLength:   2000,
				RequiredSources:    []store.SourceType{store.SourceNotebookEntry, store.SourceExperiment},
				RequiresEmbeddings: true,
			},
			extract: capture(experimentPattern, "experiment"),
		},
		{
			taskType: TaskContentWriting,
			patterns: patterns(
				`write.*content`, `generate.*content`, `create.*content`,
				`write.*about`, `draft.*section`,
			),
			confidence:      0.85,
			requiresContext: true,
			complexity:      ComplexityModerate,
			quality:         ai.TierHigh,
			speed:           ai.SpeedMedium,
			cost:            ai.TierMedium,
			context: &ContextRequirements{
				MinContextLength: 1500,
				RequiredSources:  []store.SourceType{store.SourcePaper, store.SourceNotebookEntry},
			},
		},
		{
			taskType: TaskIdeaGeneration,
			patterns: patterns(
				`generate.*idea`, `suggest.*idea`, `research.*idea`, `new.*idea`,
				`hypothesis`, `research.*direction`,
			),
			confidence:      0.9,
			requiresContext: true,
			complexity:      ComplexityModerate,
			quality:         ai.TierHigh,
			speed:           ai.SpeedFast,
			cost:            ai.TierLow,
			context: &ContextRequirements{
				MinContextLength:   1000,
				RequiredSources:    []store.SourceType{store.SourcePaper, store.SourceNotebookEntry},
				RequiresEmbeddings: true,
			},
			extract: capture(fieldPattern, "field"),
		},
		{
			taskType: TaskProposalWriting,
			patterns: patterns(
				`write.*proposal`, `grant.*proposal`, `research.*proposal`,
				`funding.*proposal`, `project.*proposal`,
			),
			confidence:      0.95,
			requiresContext: true,
			complexity:      ComplexityComplex,
			quality:         ai.TierHigh,
			speed:           ai.SpeedSlow,
			cost:            ai.TierLow,
			context: &ContextRequirements{
				MinContextLength:   5000,
				RequiredSources:    []store.SourceType{store.SourcePaper, store.SourceNotebookEntry, store.SourceExperiment},
				RequiresEmbeddings: true,
			},
			extract: capture(proposalPattern, "topic"),
		},
		{
			taskType: TaskDataAnalysis,
			patterns: patterns(
				`analyze.*data`, `data.*analysis`, `interpret.*data`,
				`analyze.*results`, `statistical.*analysis`,
			),
			confidence:      0.9,
			requiresContext: true,
			complexity:      ComplexityModerate,
			quality:         ai.TierHigh,
			speed:           ai.SpeedMedium,
			cost:            ai.TierMedium,
			context: &ContextRequirements{
				MinContextLength: 3000,
				RequiredSources:  []store.SourceType{store.SourceExperiment, store.SourceNotebookEntry},
			},
		},
		{
			taskType: TaskImageCreation,
			patterns: patterns(
				`create.*image`, `generate.*image`, `create.*figure`,
				`generate.*figure`, `visualization`, `diagram`,
			),
			confidence:      0.9,
			requiresContext: true,
			complexity:      ComplexityModerate,
			quality:         ai.TierHigh,
			speed:           ai.SpeedFast,
			cost:            ai.TierHigh,
			context: &ContextRequirements{
				MinContextLength: 1000,
				RequiredSources:  []store.SourceType{store.SourceExperiment, store.SourceNotebookEntry},
			},
		},
		{
			taskType: TaskPaperGeneration,
			patterns: patterns(
				`write.*paper`, `generate.*paper`, `create.*paper`,
				`draft.*paper`, `full.*paper`,
			),
			confidence:      0.95,
			requiresContext: true,
			complexity:      ComplexityComplex,
			quality:         ai.TierHigh,
			speed:           ai.SpeedSlow,
			cost:            ai.TierLow,
			context: &ContextRequirements{
				MinContextLength: 10000,
				RequiredSources: []store.SourceType{
					store.SourcePaper, store.SourceNotebookEntry, store.SourceExperiment, store.SourceProtocol,
				},
				RequiresEmbeddings: true,
			},
		},
		{
			taskType: TaskPresentationGeneration,
			patterns: patterns(
				`create.*presentation`, `generate.*presentation`, `make.*slides`,
				`create.*ppt`, `powerpoint`,
			),
			confidence:      0.9,
			requiresContext: true,
			complexity:      ComplexityComplex,
			quality:         ai.TierMedium,
			speed:           ai.SpeedFast,
			cost:            ai.TierMedium,
			context: &ContextRequirements{
				MinContextLength: 5000,
				RequiredSources:  []store.SourceType{store.SourcePaper, store.SourceExperiment},
			},
		},
		{
			taskType: TaskCodeGeneration,
			patterns: patterns(
				`write.*code`, `generate.*code`, `create.*code`, `code.*for`, `programming`,
			),
			confidence: 0.85,
			complexity: ComplexityModerate,
			quality:    ai.TierHigh,
			speed:      ai.SpeedFast,
			cost:       ai.TierLow,
		},
		{
			taskType:   TaskTranslation,
			patterns:   patterns(`translate`, `translation`, `convert.*language`),
			confidence: 0.9,
			complexity: ComplexitySimple,
			quality:    ai.TierHigh,
			speed:      ai.SpeedFast,
			cost:       ai.TierHigh,
		},
		{
			taskType:        TaskSummarization,
			patterns:        patterns(`summarize`, `summary`, `brief.*overview`, `condense`),
			confidence:      0.85,
			requiresContext: true,
			complexity:      ComplexitySimple,
			quality:         ai.TierMedium,
			speed:           ai.SpeedFast,
			cost:            ai.TierHigh,
			context: &ContextRequirements{
				MinContextLength: 2000,
				RequiredSources:  []store.SourceType{store.SourcePaper, store.SourceNotebookEntry},
			},
		},
	}
}

// RuleMatcher selects the strongest matching rule for a request.
type RuleMatcher struct {
	rules []*rule
}

// NewRuleMatcher creates a matcher over the default rule table.
func NewRuleMatcher() *RuleMatcher {
	return &RuleMatcher{rules: defaultRules()}
}

// match returns the matching rule with the highest confidence.
// Ties keep the earliest declared rule. The second result is false when nothing matches.
func (m *RuleMatcher) match(text string) (*rule, bool) {
	var best *rule
	for _, r := range m.rules {
		if !r.matches(text) {
			continue
		}
		if best == nil || r.confidence > best.confidence {
			best = r
		}
	}
	return best, best != nil
}

// TaskTypes returns the task types covered by the rule table, in declaration order.
func (m *RuleMatcher) TaskTypes() []TaskType {
	types := make([]TaskType, 0, len(m.rules))
	for _, r := range m.rules {
		if !slices.Contains(types, r.taskType) {
			types = append(types, r.taskType)
		}
	}
	return types
}

// copyContext returns a deep copy so analyses never share rule state.
func copyContext(c *ContextRequirements) *ContextRequirements {
	if c == nil {
		return nil
	}
	cp := *c
	cp.RequiredSources = slices.Clone(c.RequiredSources)
	return &cp
}
