package agent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/router"
	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

const (
	// MinAbstractContentLength is the shortest research description an abstract is written from.
	MinAbstractContentLength = 50
	// MinSummarizationLength is the shortest text worth summarizing.
	MinSummarizationLength = 50

	defaultWordLimit  = 250
	defaultMaxResults = 10
	defaultIdeaCount  = 5
	defaultSlideCount = 10
)

// builtinUnits returns the specs of every built-in unit in registration order.
func builtinUnits() []unitSpec {
	return append(analysisUnits(), workflowUnits()...)
}

func analysisUnits() []unitSpec {
	return []unitSpec{
		{
			taskType:     router.TaskPaperFinding,
			name:         "Paper Finder",
			description:  "Finds and summarizes academic papers relevant to a query",
			sources:      []store.SourceType{store.SourcePaper},
			systemPrompt: promptPaperFinding,
			temperature:  0.3,
			maxTokens:    3000,
			validate:     requireText("query"),
			prompt: func(in *Input) string {
				prompt := fmt.Sprintf("Find up to %d academic papers about: %s", resultLimit(in, defaultMaxResults), in.Text)
				if year := paramInt(in, "year", 0); year > 0 {
					prompt += fmt.Sprintf("\nOnly include papers published in or after %d.", year)
				}
				return prompt + "\n\n" + formatPapers
			},
			parse: parsePapers,
		},
		{
			taskType:     router.TaskAbstractWriting,
			name:         "Abstract Writer",
			description:  "Writes a structured scientific abstract from research notes and results",
			sources:      []store.SourceType{store.SourceNotebookEntry, store.SourceExperiment},
			systemPrompt: promptAbstractWriting,
			temperature:  0.7,
			maxTokens:    1000,
			validate:     requireMinLength("content", MinAbstractContentLength),
			prompt: func(in *Input) string {
				var b strings.Builder
				fmt.Fprintf(&b, "Write a %s scientific abstract of at most %d words", paramString(in, "style", "structured"), paramInt(in, "word_limit", defaultWordLimit))
				if in.Title != "" {
					fmt.Fprintf(&b, " for the work titled %q", in.Title)
				}
				b.WriteString(" based on the following research:\n\n")
				b.WriteString(in.Text)
				b.WriteString("\n\n")
				b.WriteString(formatAbstract)
				return b.String()
			},
			parse: parseAbstract,
		},
		{
			taskType:     router.TaskContentWriting,
			name:         "Content Writer",
			description:  "Writes clear, structured research content",
			sources:      []store.SourceType{store.SourceNotebookEntry, store.SourcePaper},
			systemPrompt: promptContentWriting,
			temperature:  0.7,
			maxTokens:    2000,
			validate:     requireText("request"),
			prompt: func(in *Input) string {
				prompt := in.Text
				if in.Title != "" {
					prompt = fmt.Sprintf("Title: %s\n\n%s", in.Title, prompt)
				}
				if tone := paramString(in, "tone", ""); tone != "" {
					prompt += "\n\nUse a " + tone + " tone."
				}
				return prompt + "\n\nUse markdown headings for sections."
			},
			parse: parseDocument,
		},
		{
			taskType:     router.TaskIdeaGeneration,
			name:         "Idea Generator",
			description:  "Suggests novel, feasible research ideas",
			sources:      []store.SourceType{store.SourcePaper, store.SourceNotebookEntry},
			systemPrompt: promptIdeaGeneration,
			temperature:  0.8,
			maxTokens:    2000,
			prompt: func(in *Input) string {
				prompt := fmt.Sprintf("Generate %d research ideas", paramInt(in, "count", defaultIdeaCount))
				if field := paramString(in, "field", ""); field != "" {
					prompt += " in " + field
				}
				if in.Text != "" {
					prompt += ".\n\nRequest: " + in.Text
				} else {
					prompt += " that build on my research."
				}
				return prompt + "\n\n" + formatIdeas
			},
			parse: parseIdeas,
		},
		{
			taskType:     router.TaskProposalWriting,
			name:         "Proposal Writer",
			description:  "Drafts grant and research proposals",
			sources:      []store.SourceType{store.SourcePaper, store.SourceNotebookEntry, store.SourceExperiment, store.SourceProtocol},
			systemPrompt: promptProposalWriting,
			temperature:  0.6,
			maxTokens:    4000,
			validate:     requireTitleOrText,
			prompt: func(in *Input) string {
				var b strings.Builder
				fmt.Fprintf(&b, "Write a research proposal titled %q.", titleOrText(in))
				if agency := paramString(in, "funding_agency", ""); agency != "" {
					fmt.Fprintf(&b, " It targets %s.", agency)
				}
				if in.Title != "" && in.Text != "" {
					b.WriteString("\n\n")
					b.WriteString(in.Text)
				}
				b.WriteString("\n\nUse the markdown headings ## Background, ## Objectives, ## Methodology, ## Expected Outcomes, ## Timeline and ## Budget Justification.")
				return b.String()
			},
			parse: parseDocument,
		},
		{
			taskType:     router.TaskDataAnalysis,
			name:         "Data Analyst",
			description:  "Analyzes experimental data and interprets the results",
			sources:      []store.SourceType{store.SourceExperiment, store.SourceNotebookEntry},
			systemPrompt: promptDataAnalysis,
			temperature:  0.5,
			maxTokens:    3000,
			validate:     requireText("data"),
			prompt: func(in *Input) string {
				prompt := "Analyze the following data"
				if analysis := paramString(in, "analysis_type", ""); analysis != "" {
					prompt += " using " + analysis
				}
				return prompt + ":\n\n" + in.Text + "\n\n" + formatAnalysis
			},
			parse: parseAnalysis,
		},
		{
			taskType:     router.TaskImageCreation,
			name:         "Figure Generator",
			description:  "Generates scientific figures and diagrams from descriptions",
			systemPrompt: promptImageCreation,
			validate:     requireText("description"),
			prompt:       imagePrompt,
			parse:        parseImage,
			image:        true,
		},
		{
			taskType:     router.TaskPaperGeneration,
			name:         "Paper Writer",
			description:  "Drafts complete research manuscripts",
			sources:      []store.SourceType{store.SourcePaper, store.SourceNotebookEntry, store.SourceExperiment},
			systemPrompt: promptPaperGeneration,
			temperature:  0.6,
			maxTokens:    4000,
			validate:     requireTitleOrText,
			prompt: func(in *Input) string {
				var b strings.Builder
				fmt.Fprintf(&b, "Write a complete research paper titled %q.", titleOrText(in))
				if in.Title != "" && in.Text != "" {
					b.WriteString("\n\nResearch question and material:\n")
					b.WriteString(in.Text)
				}
				b.WriteString("\n\nUse the markdown headings ## Abstract, ## Introduction, ## Methods, ## Results, ## Discussion, ## Conclusion and ## References.")
				return b.String()
			},
			parse: parseDocument,
		},
		{
			taskType:     router.TaskPresentationGeneration,
			name:         "Presentation Builder",
			description:  "Turns research into presentation slides",
			sources:      []store.SourceType{store.SourcePaper, store.SourceNotebookEntry, store.SourceExperiment},
			systemPrompt: promptPresentationGeneration,
			temperature:  0.6,
			maxTokens:    4000,
			validate:     requireText("source content"),
			prompt: func(in *Input) string {
				prompt := fmt.Sprintf("Create a presentation of about %d slides", paramInt(in, "slide_count", defaultSlideCount))
				if audience := paramString(in, "audience", ""); audience != "" {
					prompt += " for " + audience
				}
				if in.Title != "" {
					prompt += fmt.Sprintf(" titled %q", in.Title)
				}
				return prompt + " from:\n\n" + in.Text + "\n\n" + formatSlides
			},
			parse: parsePresentation,
		},
		{
			taskType:     router.TaskCodeGeneration,
			name:         "Code Generator",
			description:  "Writes analysis and lab automation code",
			systemPrompt: promptCodeGeneration,
			temperature:  0.2,
			maxTokens:    2500,
			validate:     requireText("description"),
			prompt: func(in *Input) string {
				return fmt.Sprintf("Write %s code for the following task:\n\n%s\n\nReturn the code in a single fenced code block followed by a short explanation.",
					paramString(in, "language", "python"), in.Text)
			},
			parse: parseCode,
		},
		{
			taskType:     router.TaskTranslation,
			name:         "Translator",
			description:  "Translates research text while preserving terminology",
			systemPrompt: promptTranslation,
			temperature:  0.3,
			maxTokens:    3000,
			validate: func(in *Input) error {
				if err := requireText("text")(in); err != nil {
					return err
				}
				if paramString(in, "target_language", "") == "" {
					return invalidInput("target_language is required")
				}
				return nil
			},
			prompt: func(in *Input) string {
				prompt := "Translate the following text into " + paramString(in, "target_language", "")
				if source := paramString(in, "source_language", ""); source != "" {
					prompt += " from " + source
				}
				return prompt + ". Return only the translation.\n\n" + in.Text
			},
			parse: parseTranslation,
		},
		{
			taskType:     router.TaskSummarization,
			name:         "Summarizer",
			description:  "Summarizes research text into key points",
			sources:      []store.SourceType{store.SourceNotebookEntry, store.SourceExperiment, store.SourcePaper},
			systemPrompt: promptSummarization,
			temperature:  0.3,
			maxTokens:    1000,
			validate:     requireMinLength("text", MinSummarizationLength),
			prompt: func(in *Input) string {
				return fmt.Sprintf("Summarize the following in at most %d words:\n\n%s\n\n%s",
					paramInt(in, "word_limit", defaultWordLimit), in.Text, formatSummary)
			},
			parse: parseSummary,
		},
		{
			taskType:     TaskLiteratureReview,
			name:         "Literature Reviewer",
			description:  "Synthesizes the literature on a topic into themes and gaps",
			sources:      []store.SourceType{store.SourcePaper},
			systemPrompt: promptLiteratureReview,
			temperature:  0.7,
			maxTokens:    4000,
			validate:     requireText("topic"),
			prompt: func(in *Input) string {
				prompt := "Write a literature review on: " + in.Text
				if scope := paramString(in, "scope", ""); scope != "" {
					prompt += "\nScope: " + scope
				}
				return prompt + "\n\n" + formatReview
			},
			parse: parseReview,
		},
		{
			taskType:     TaskHypothesisGeneration,
			name:         "Hypothesis Generator",
			description:  "Proposes testable hypotheses for a research question",
			sources:      []store.SourceType{store.SourcePaper, store.SourceNotebookEntry, store.SourceExperiment},
			systemPrompt: promptHypothesisGeneration,
			temperature:  0.7,
			maxTokens:    3000,
			validate:     requireText("research question"),
			prompt: func(in *Input) string {
				return fmt.Sprintf("Propose %d hypotheses for the research question:\n\n%s\n\n%s",
					paramInt(in, "count", 3), in.Text, formatHypotheses)
			},
			parse: parseHypotheses,
		},
	}
}

func imagePrompt(in *Input) string {
	prompt := in.Text
	if style := paramString(in, "style", ""); style != "" {
		prompt += ". Style: " + style
	}
	return prompt
}

func requireText(field string) func(*Input) error {
	return func(in *Input) error {
		if strings.TrimSpace(in.Text) == "" {
			return invalidInput(field + " is required")
		}
		return nil
	}
}

func requireMinLength(field string, n int) func(*Input) error {
	return func(in *Input) error {
		if len([]rune(strings.TrimSpace(in.Text))) < n {
			return invalidInput(fmt.Sprintf("%s must be at least %d characters", field, n))
		}
		return nil
	}
}

func requireTitleOrText(in *Input) error {
	if titleOrText(in) == "" {
		return invalidInput("title is required")
	}
	return nil
}

func titleOrText(in *Input) string {
	if t := strings.TrimSpace(in.Title); t != "" {
		return t
	}
	return strings.TrimSpace(in.Text)
}

func paramString(in *Input, key, def string) string {
	if in == nil {
		return def
	}
	if v, ok := in.Parameters[key]; ok {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" && v != nil {
			return s
		}
	}
	return def
}

// resultLimit prefers an explicit max_results over the quantity named in the request text.
func resultLimit(in *Input, def int) int {
	return paramInt(in, "max_results", paramInt(in, "quantity", def))
}

func paramInt(in *Input, key string, def int) int {
	if in == nil {
		return def
	}
	switch v := in.Parameters[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}
