package agent

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/store"
)

const (
	defaultPassScore     = 70
	defaultMaxReferences = 10
	defaultCitationStyle = "APA"
)

var (
	// OptimizationGoals are the accepted values of the "goals" parameter.
	OptimizationGoals = []string{"efficiency", "accuracy", "cost", "safety", "reproducibility"}
	// CitationStyles are the accepted values of the "citation_style" parameter.
	CitationStyles = []string{"APA", "MLA", "Chicago", "IEEE", "Nature", "Science", "Vancouver"}
	// DataFileTypes are the accepted values of the "file_type" parameter.
	DataFileTypes = []string{"csv", "tsv", "json", "txt"}
)

// draftSections are the manuscript parts compiled in order.
var draftSections = []struct {
	key  string
	stem string
}{
	{"abstract", "abstract"},
	{"introduction", "introduction"},
	{"methods", "method"},
	{"results", "result"},
	{"discussion", "discussion"},
	{"conclusion", "conclusion"},
	{"references", "reference"},
}

// workflowUnits are the research workflow units. The analyzer never selects
// them, callers name their task type.
func workflowUnits() []unitSpec {
	return []unitSpec{
		{
			taskType:     TaskExperimentDesign,
			name:         "Experiment Designer",
			description:  "Designs experiments with variables, controls and an analysis plan",
			sources:      []store.SourceType{store.SourceNotebookEntry, store.SourceProtocol, store.SourceExperiment},
			systemPrompt: promptExperimentDesign,
			temperature:  0.7,
			maxTokens:    3000,
			validate:     requireText("research question"),
			prompt: func(in *Input) string {
				var b strings.Builder
				b.WriteString("Design an experiment for the research question:\n\n")
				b.WriteString(in.Text)
				if h := paramString(in, "hypothesis", ""); h != "" {
					b.WriteString("\n\nWorking hypothesis: " + h)
				}
				if design := paramString(in, "design_type", ""); design != "" {
					b.WriteString("\nPreferred design: " + design)
				}
				if c := paramString(in, "constraints", ""); c != "" {
					b.WriteString("\nConstraints: " + c)
				}
				b.WriteString("\n\n")
				b.WriteString(formatExperimentDesign)
				return b.String()
			},
			parse: parseExperimentDesign,
		},
		{
			taskType:     TaskProtocolOptimization,
			name:         "Protocol Optimizer",
			description:  "Optimizes laboratory protocols toward stated goals",
			sources:      []store.SourceType{store.SourceProtocol, store.SourceNotebookEntry, store.SourceExperiment},
			systemPrompt: promptProtocolOptimization,
			temperature:  0.4,
			maxTokens:    3000,
			validate: func(in *Input) error {
				if err := requireText("protocol")(in); err != nil {
					return err
				}
				for _, goal := range splitList(paramString(in, "goals", "")) {
					if !slices.Contains(OptimizationGoals, strings.ToLower(goal)) {
						return invalidInput(fmt.Sprintf("unknown optimization goal %q", goal))
					}
				}
				return nil
			},
			prompt: func(in *Input) string {
				goals := strings.Join(OptimizationGoals, ", ")
				if g := splitList(paramString(in, "goals", "")); len(g) > 0 {
					goals = strings.ToLower(strings.Join(g, ", "))
				}
				prompt := fmt.Sprintf("Optimize the following protocol for %s.", goals)
				if c := paramString(in, "constraints", ""); c != "" {
					prompt += "\nConstraints: " + c
				}
				return prompt + "\n\n" + in.Text + "\n\n" + formatProtocolOptimization
			},
			parse: parseProtocolOptimization,
		},
		{
			taskType:     TaskQualityValidation,
			name:         "Quality Validator",
			description:  "Scores research documents and lists the actions that improve them",
			systemPrompt: promptQualityValidation,
			temperature:  0.2,
			maxTokens:    2000,
			validate:     requireText("content"),
			prompt: func(in *Input) string {
				criteria := paramString(in, "criteria", "completeness, structure, grammar, citations, formatting, clarity and accuracy")
				return fmt.Sprintf("Assess the quality of the following %s for %s.\n\n%s\n\n%s",
					paramString(in, "content_type", "document"), criteria, in.Text, formatQualityValidation)
			},
			parse: parseQualityReport,
		},
		{
			taskType:     TaskReferenceManagement,
			name:         "Reference Manager",
			description:  "Suggests references and formats citations in a given style",
			sources:      []store.SourceType{store.SourcePaper, store.SourceNotebookEntry},
			systemPrompt: promptReferenceManagement,
			temperature:  0.3,
			maxTokens:    3000,
			validate: func(in *Input) error {
				if err := requireText("content")(in); err != nil {
					return err
				}
				if _, ok := citationStyle(in); !ok {
					return invalidInput(fmt.Sprintf("unsupported citation style %q", paramString(in, "citation_style", "")))
				}
				return nil
			},
			prompt: func(in *Input) string {
				style, _ := citationStyle(in)
				return fmt.Sprintf("Suggest up to %d references for the following content and format them in %s style:\n\n%s\n\n%s",
					resultLimit(in, defaultMaxReferences), style, in.Text, formatReferences)
			},
			parse: parseReferences,
		},
		{
			taskType:     TaskDataReading,
			name:         "Data Reader",
			description:  "Reads data files and describes their structure and patterns",
			sources:      []store.SourceType{store.SourceNotebookEntry, store.SourceExperiment},
			systemPrompt: promptDataReading,
			temperature:  0.3,
			maxTokens:    2500,
			validate: func(in *Input) error {
				if err := requireText("file content")(in); err != nil {
					return err
				}
				if ft := paramString(in, "file_type", ""); ft != "" && !slices.Contains(DataFileTypes, strings.ToLower(ft)) {
					return invalidInput(fmt.Sprintf("unsupported file type %q", ft))
				}
				return nil
			},
			prompt: func(in *Input) string {
				shape := inspectData(in)
				var b strings.Builder
				fmt.Fprintf(&b, "Read the following %s data", shape.Format)
				if src := paramString(in, "data_source", ""); src != "" {
					fmt.Fprintf(&b, " from %s", src)
				}
				b.WriteString(".")
				if len(shape.Columns) > 0 {
					fmt.Fprintf(&b, " It has %d rows and the columns %s.", shape.Rows, strings.Join(shape.Columns, ", "))
				}
				b.WriteString("\n\n")
				b.WriteString(in.Text)
				b.WriteString("\n\n")
				b.WriteString(formatDataReading)
				return b.String()
			},
			parse: parseDataReading,
		},
		{
			taskType:     TaskOutputFormatting,
			name:         "Output Formatter",
			description:  "Reformats content for a journal or style guide",
			systemPrompt: promptOutputFormatting,
			temperature:  0.2,
			maxTokens:    4000,
			validate:     requireText("content"),
			prompt: func(in *Input) string {
				target := paramString(in, "journal", paramString(in, "style", "general academic style"))
				prompt := fmt.Sprintf("Format the following %s for %s.", paramString(in, "content_type", "manuscript"), target)
				if limit := paramInt(in, "word_limit", 0); limit > 0 {
					prompt += fmt.Sprintf(" Keep it under %d words.", limit)
				}
				return prompt + "\n\n" + in.Text + "\n\n" + formatOutput
			},
			parse: parseFormattedOutput,
		},
		{
			taskType:     TaskDraftCompilation,
			name:         "Draft Compiler",
			description:  "Compiles manuscript sections into one coherent draft",
			sources:      []store.SourceType{store.SourcePaper, store.SourceNotebookEntry},
			systemPrompt: promptDraftCompilation,
			temperature:  0.2,
			maxTokens:    4000,
			validate: func(in *Input) error {
				if titleOrText(in) == "" && len(providedSections(in)) == 0 {
					return invalidInput("title or at least one section is required")
				}
				return nil
			},
			prompt: func(in *Input) string {
				var b strings.Builder
				fmt.Fprintf(&b, "Compile a manuscript draft in the %s format", paramString(in, "style", "IMRaD"))
				if in.Title != "" {
					fmt.Fprintf(&b, " titled %q", in.Title)
				}
				b.WriteString(" from the material below. Keep the content of every section and smooth the transitions between them.")
				for _, s := range providedSections(in) {
					fmt.Fprintf(&b, "\n\n### %s\n%s", s.Heading, s.Body)
				}
				if text := strings.TrimSpace(in.Text); text != "" && text != strings.TrimSpace(in.Title) {
					b.WriteString("\n\n### Notes\n")
					b.WriteString(text)
				}
				b.WriteString("\n\nUse the markdown headings ## Abstract, ## Introduction, ## Methods, ## Results, ## Discussion, ## Conclusion and ## References.")
				return b.String()
			},
			parse: parseDraft,
		},
	}
}

// ExperimentDesign is the content of an experiment design execution.
type ExperimentDesign struct {
	Hypothesis       string    `json:"hypothesis,omitempty"`
	Objectives       []string  `json:"objectives,omitempty"`
	Methodology      string    `json:"methodology,omitempty"`
	Materials        []string  `json:"materials,omitempty"`
	Procedure        []string  `json:"procedure,omitempty"`
	Variables        []string  `json:"variables,omitempty"`
	Controls         []string  `json:"controls,omitempty"`
	AnalysisPlan     string    `json:"analysis_plan,omitempty"`
	Timeline         []string  `json:"timeline,omitempty"`
	Ethics           string    `json:"ethics,omitempty"`
	ExpectedOutcomes []string  `json:"expected_outcomes,omitempty"`
	Risks            []string  `json:"risks,omitempty"`
	Sections         []Section `json:"sections,omitempty"`
	Raw              string    `json:"raw"`
}

// Optimization is one proposed protocol change.
type Optimization struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description"`
	Impact      string `json:"impact,omitempty"`
	Rationale   string `json:"rationale,omitempty"`
}

// ProtocolOptimization is the content of a protocol optimization execution.
type ProtocolOptimization struct {
	Steps           []string       `json:"steps,omitempty"`
	Optimizations   []Optimization `json:"optimizations"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Raw             string         `json:"raw"`
}

// QualityReport is the content of a quality validation execution. Score is
// zero when the answer carries no score.
type QualityReport struct {
	Score           int      `json:"score"`
	Passed          bool     `json:"passed"`
	Strengths       []string `json:"strengths,omitempty"`
	Weaknesses      []string `json:"weaknesses,omitempty"`
	PriorityActions []string `json:"priority_actions,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Raw             string   `json:"raw"`
}

// Reference is one formatted reference.
type Reference struct {
	Citation string `json:"citation"`
	InText   string `json:"in_text,omitempty"`
	Year     int    `json:"year,omitempty"`
	DOI      string `json:"doi,omitempty"`
}

// ReferenceList is the content of a reference management execution.
type ReferenceList struct {
	Style        string      `json:"style"`
	References   []Reference `json:"references"`
	Bibliography string      `json:"bibliography"`
	Raw          string      `json:"raw"`
}

// DataShape is the structure of a data file read without any backend.
type DataShape struct {
	Format  string   `json:"format"`
	Columns []string `json:"columns,omitempty"`
	Rows    int      `json:"rows"`
}

// DataReading is the content of a data reading execution.
type DataReading struct {
	DataShape
	Summary         string   `json:"summary,omitempty"`
	Variables       []string `json:"variables,omitempty"`
	Patterns        []string `json:"patterns,omitempty"`
	QualityIssues   []string `json:"quality_issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Raw             string   `json:"raw"`
}

// FormattedOutput is the content of an output formatting execution.
type FormattedOutput struct {
	Text            string   `json:"text"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	WordCount       int      `json:"word_count"`
}

// CompiledDraft is the content of a draft compilation execution.
type CompiledDraft struct {
	Document
	MissingSections []string `json:"missing_sections,omitempty"`
}

func parseExperimentDesign(raw string, _ *Input) any {
	sections, _ := parseMarkdown(raw)
	design := &ExperimentDesign{Sections: sections, Raw: raw}
	text := func(names ...string) string { return sectionText(findSection(sections, names...)) }
	list := func(names ...string) []string {
		if s := findSection(sections, names...); s != nil {
			return itemsOrBody(s)
		}
		return nil
	}

	design.Hypothesis = text("hypothes")
	design.Objectives = list("objective", "aim")
	design.Methodology = text("methodology", "design")
	design.Materials = list("material", "equipment")
	design.Procedure = list("procedure", "step")
	design.Variables = list("variable")
	design.Controls = list("control")
	design.AnalysisPlan = text("analysis")
	design.Timeline = list("timeline", "schedule")
	design.Ethics = text("ethic")
	design.ExpectedOutcomes = list("outcome", "expected")
	design.Risks = list("risk")
	return design
}

func parseProtocolOptimization(raw string, _ *Input) any {
	sections, _ := parseMarkdown(raw)
	result := &ProtocolOptimization{Optimizations: []Optimization{}, Raw: raw}
	if s := findSection(sections, "optimized", "protocol", "step"); s != nil {
		result.Steps = itemsOrBody(s)
	}
	if s := findSection(sections, "recommend"); s != nil {
		result.Recommendations = itemsOrBody(s)
	}
	for _, block := range numberedBlocks(rawSection(raw, "change", "optimization")) {
		o := Optimization{
			Type:        strings.ToLower(labelled(block, "Type", "Category")),
			Description: labelled(block, "Change", "Description"),
			Impact:      labelled(block, "Impact"),
			Rationale:   labelled(block, "Rationale", "Reason"),
		}
		if o.Description == "" {
			o.Description = firstLine(block)
		}
		if o.Description != "" {
			result.Optimizations = append(result.Optimizations, o)
		}
	}
	return result
}

func parseQualityReport(raw string, in *Input) any {
	sections, _ := parseMarkdown(raw)
	report := &QualityReport{Raw: raw}
	if n, err := strconv.Atoi(integerValue.FindString(labelled(raw, "Overall Score", "Quality Score", "Score"))); err == nil {
		report.Score = min(n, 100)
	}
	report.Passed = report.Score >= paramInt(in, "pass_score", defaultPassScore)

	list := func(names ...string) []string {
		if s := findSection(sections, names...); s != nil {
			return itemsOrBody(s)
		}
		return nil
	}
	report.Strengths = list("strength")
	report.Weaknesses = list("weakness", "issue")
	report.PriorityActions = list("priority", "action")
	report.Recommendations = list("recommend")
	return report
}

func parseReferences(raw string, in *Input) any {
	style, _ := citationStyle(in)
	list := &ReferenceList{Style: style, References: []Reference{}, Raw: raw}
	for _, block := range numberedBlocks(raw) {
		ref := Reference{
			Citation: labelled(block, "Citation", "Reference"),
			InText:   labelled(block, "In-text", "In text"),
			Year:     parseYear(labelled(block, "Year")),
			DOI:      labelled(block, "DOI"),
		}
		if ref.Citation == "" {
			ref.Citation = firstLine(block)
		}
		if ref.Year == 0 {
			ref.Year = parseYear(ref.Citation)
		}
		if ref.Citation != "" {
			list.References = append(list.References, ref)
		}
	}
	if limit := resultLimit(in, 0); limit > 0 && len(list.References) > limit {
		list.References = list.References[:limit]
	}

	citations := make([]string, 0, len(list.References))
	for _, ref := range list.References {
		citations = append(citations, ref.Citation)
	}
	list.Bibliography = strings.Join(citations, "\n")
	return list
}

func parseDataReading(raw string, in *Input) any {
	sections, _ := parseMarkdown(raw)
	reading := &DataReading{DataShape: inspectData(in), Raw: raw}
	if s := findSection(sections, "summary", "overview"); s != nil {
		reading.Summary = sectionText(s)
	}
	if s := findSection(sections, "variable", "column"); s != nil {
		reading.Variables = itemsOrBody(s)
	}
	if s := findSection(sections, "pattern", "trend"); s != nil {
		reading.Patterns = itemsOrBody(s)
	}
	if s := findSection(sections, "quality"); s != nil {
		reading.QualityIssues = itemsOrBody(s)
	}
	if s := findSection(sections, "recommend"); s != nil {
		reading.Recommendations = itemsOrBody(s)
	}
	return reading
}

func parseFormattedOutput(raw string, _ *Input) any {
	sections, _ := parseMarkdown(raw)
	out := &FormattedOutput{Text: rawSection(raw, "formatted")}
	if out.Text == "" {
		out.Text = strings.TrimSpace(raw)
	}
	if s := findSection(sections, "compliance", "issue"); s != nil {
		out.Issues = itemsOrBody(s)
	}
	if s := findSection(sections, "recommend"); s != nil {
		out.Recommendations = itemsOrBody(s)
	}
	out.WordCount = wordCount(out.Text)
	return out
}

func parseDraft(raw string, in *Input) any {
	draft := &CompiledDraft{Document: *parseDocument(raw, in).(*Document)}
	for _, part := range draftSections {
		if findSection(draft.Sections, part.stem) == nil {
			draft.MissingSections = append(draft.MissingSections, part.key)
		}
	}
	return draft
}

// citationStyle returns the canonical spelling of the requested style.
func citationStyle(in *Input) (string, bool) {
	requested := paramString(in, "citation_style", defaultCitationStyle)
	for _, style := range CitationStyles {
		if strings.EqualFold(style, requested) {
			return style, true
		}
	}
	return requested, false
}

// providedSections returns the manuscript parts passed as parameters, in manuscript order.
func providedSections(in *Input) []Section {
	var out []Section
	for _, part := range draftSections {
		if body := paramString(in, part.key, ""); body != "" {
			out = append(out, Section{Heading: strings.ToUpper(part.key[:1]) + part.key[1:], Body: body})
		}
	}
	return out
}

// inspectData determines the format, columns and row count of the data in
// in.Text. Unparseable content is reported as txt with its line count.
func inspectData(in *Input) DataShape {
	content := strings.TrimSpace(in.Text)
	format := strings.ToLower(paramString(in, "file_type", ""))
	if format == "" {
		format = detectFormat(content)
	}

	switch format {
	case "csv", "tsv":
		r := csv.NewReader(strings.NewReader(content))
		if format == "tsv" {
			r.Comma = '\t'
		}
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		records, err := r.ReadAll()
		if err != nil || len(records) == 0 {
			break
		}
		columns := make([]string, 0, len(records[0]))
		for _, c := range records[0] {
			columns = append(columns, strings.TrimSpace(c))
		}
		return DataShape{Format: format, Columns: columns, Rows: len(records) - 1}
	case "json":
		var v any
		if err := json.Unmarshal([]byte(content), &v); err != nil {
			break
		}
		switch data := v.(type) {
		case []any:
			shape := DataShape{Format: format, Rows: len(data)}
			if len(data) > 0 {
				if obj, ok := data[0].(map[string]any); ok {
					shape.Columns = sortedKeys(obj)
				}
			}
			return shape
		case map[string]any:
			return DataShape{Format: format, Columns: sortedKeys(data), Rows: 1}
		}
		return DataShape{Format: format, Rows: 1}
	}
	return DataShape{Format: "txt", Rows: nonEmptyLines(content)}
}

func detectFormat(content string) string {
	if content == "" {
		return "txt"
	}
	if content[0] == '[' || content[0] == '{' {
		if json.Valid([]byte(content)) {
			return "json"
		}
	}
	header, _, _ := strings.Cut(content, "\n")
	switch {
	case strings.Contains(header, "\t"):
		return "tsv"
	case strings.Contains(header, ","):
		return "csv"
	}
	return "txt"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonEmptyLines(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
