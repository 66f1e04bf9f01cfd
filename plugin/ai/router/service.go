package router

import (
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/timeout"
)

var (
	yearPattern     = regexp.MustCompile(`(?i)\b(?:since|after|before|from)\s+(\d{4})\b`)
	quantityPattern = regexp.MustCompile(`(?i)\b(\d+)\s+(?:papers?|articles?|results?)\b`)
	languagePattern = regexp.MustCompile(`(?i)\b(?:in)?to\s+([a-z]+)`)

	// contextIndicators detect references to the user's own work.
	contextIndicators = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmy\s+(?:paper|experiment|data|research|notebook)`),
		regexp.MustCompile(`(?i)\bbased\s+on\s+my\b`),
		regexp.MustCompile(`(?i)\bfrom\s+my\b`),
		regexp.MustCompile(`(?i)\busing\s+my\b`),
	}
)

// contextTaskTypes always draw on the user's own content.
var contextTaskTypes = []TaskType{
	TaskAbstractWriting,
	TaskContentWriting,
	TaskIdeaGeneration,
	TaskProposalWriting,
	TaskDataAnalysis,
	TaskPaperGeneration,
	TaskPresentationGeneration,
	TaskSummarization,
}

// TaskAnalyzer is the rule-based Analyzer.
type TaskAnalyzer struct {
	matcher *RuleMatcher
}

var _ Analyzer = (*TaskAnalyzer)(nil)

// NewTaskAnalyzer creates an analyzer over the default rule table.
func NewTaskAnalyzer() *TaskAnalyzer {
	return &TaskAnalyzer{matcher: NewRuleMatcher()}
}

// Analyze classifies text. When no rule matches it returns DefaultTaskType
// with DefaultConfidence and a medium profile.
func (a *TaskAnalyzer) Analyze(text string) TaskAnalysis {
	r, matched := a.matcher.match(text)
	if !matched {
		slog.Debug("no task rule matched, using default",
			"input", truncate(text, timeout.MaxTruncateLength),
			"task_type", DefaultTaskType)
		return TaskAnalysis{
			TaskType:            DefaultTaskType,
			Confidence:          DefaultConfidence,
			Parameters:          ExtractParameters(text, DefaultTaskType),
			RequiresContext:     true,
			EstimatedComplexity: ComplexityModerate,
			QualityRequirement:  ai.TierMedium,
			SpeedRequirement:    ai.SpeedMedium,
			CostSensitivity:     ai.TierMedium,
		}
	}

	params := ExtractParameters(text, r.taskType)
	if r.extract != nil {
		maps.Copy(params, r.extract(text))
	}

	analysis := TaskAnalysis{
		TaskType:            r.taskType,
		Confidence:          r.confidence,
		Parameters:          params,
		RequiresContext:     r.requiresContext || hasContextIndicator(text),
		EstimatedComplexity: r.complexity,
		ContextRequirements: copyContext(r.context),
		QualityRequirement:  r.quality,
		SpeedRequirement:    r.speed,
		CostSensitivity:     r.cost,
	}

	slog.Debug("task classified by rule matcher",
		"input", truncate(text, timeout.MaxTruncateLength),
		"task_type", analysis.TaskType,
		"confidence", analysis.Confidence,
		"requires_context", analysis.RequiresContext)
	return analysis
}

// TaskTypes returns the registered task types in declaration order.
func (a *TaskAnalyzer) TaskTypes() []TaskType {
	return a.matcher.TaskTypes()
}

// IsKnownTaskType reports whether t is in the registered set.
func (a *TaskAnalyzer) IsKnownTaskType(t TaskType) bool {
	return slices.Contains(a.matcher.TaskTypes(), t)
}

// ExtractParameters pulls generic parameters out of text: topic, year,
// quantity and, for translations, target_language. Absent values are omitted.
func ExtractParameters(text string, taskType TaskType) map[string]any {
	params := make(map[string]any)

	if topic := firstGroup(topicPattern, text); topic != "" {
		params["topic"] = topic
	}
	if year, err := strconv.Atoi(firstGroup(yearPattern, text)); err == nil {
		params["year"] = year
	}
	if quantity, err := strconv.Atoi(firstGroup(quantityPattern, text)); err == nil {
		params["quantity"] = quantity
	}
	if taskType == TaskTranslation {
		if lang := firstGroup(languagePattern, text); lang != "" {
			params["target_language"] = strings.ToLower(lang)
		}
	}

	return params
}

// RequiresUserContext reports whether a task of taskType described by text
// needs the user's own content.
func RequiresUserContext(taskType TaskType, text string) bool {
	if slices.Contains(contextTaskTypes, taskType) {
		return true
	}
	return hasContextIndicator(text)
}

func hasContextIndicator(text string) bool {
	for _, p := range contextIndicators {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
