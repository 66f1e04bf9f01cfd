// Package router classifies free-text research requests into AI task types.
package router

import (
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

// Analyzer classifies a request and derives its resource requirements.
// Implementations are deterministic and never call a network.
type Analyzer interface {
	Analyze(text string) TaskAnalysis
}

// TaskType is a member of the closed set of AI task categories.
type TaskType string

const (
	TaskPaperFinding           TaskType = "paper_finding"
	TaskAbstractWriting        TaskType = "abstract_writing"
	TaskContentWriting         TaskType = "content_writing"
	TaskIdeaGeneration         TaskType = "idea_generation"
	TaskProposalWriting        TaskType = "proposal_writing"
	TaskDataAnalysis           TaskType = "data_analysis"
	TaskImageCreation          TaskType = "image_creation"
	TaskPaperGeneration        TaskType = "paper_generation"
	TaskPresentationGeneration TaskType = "presentation_generation"
	TaskCodeGeneration         TaskType = "code_generation"
	TaskTranslation            TaskType = "translation"
	TaskSummarization          TaskType = "summarization"
)

// DefaultTaskType is returned when no rule matches.
const DefaultTaskType = TaskContentWriting

// DefaultConfidence is the confidence of an unmatched analysis.
const DefaultConfidence = 0.5

// Complexity is the estimated effort of a task.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ContextRequirements describes what retrieved context a task needs.
type ContextRequirements struct {
	MinContextLength   int                `json:"min_context_length,omitempty"`
	RequiredSources    []store.SourceType `json:"required_sources,omitempty"`
	RequiresEmbeddings bool               `json:"requires_embeddings,omitempty"`
}

// TaskAnalysis is the classification of one request. It is never persisted.
type TaskAnalysis struct {
	TaskType            TaskType             `json:"task_type"`
	Confidence          float64              `json:"confidence"`
	Parameters          map[string]any       `json:"parameters"`
	RequiresContext     bool                 `json:"requires_context"`
	EstimatedComplexity Complexity           `json:"estimated_complexity"`
	ContextRequirements *ContextRequirements `json:"context_requirements,omitempty"`
	QualityRequirement  ai.Tier              `json:"quality_requirement"`
	SpeedRequirement    ai.Tier              `json:"speed_requirement"`
	CostSensitivity     ai.Tier              `json:"cost_sensitivity"`
}

// RequiresSource reports whether the analysis lists source among its required sources.
func (a *TaskAnalysis) RequiresSource(source store.SourceType) bool {
	if a.ContextRequirements == nil {
		return false
	}
	for _, s := range a.ContextRequirements.RequiredSources {
		if s == source {
			return true
		}
	}
	return false
}
