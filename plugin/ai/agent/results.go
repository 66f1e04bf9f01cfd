package agent

import (
	"regexp"
	"strings"
)

// FoundPaper is one paper suggested by the paper finding unit.
type FoundPaper struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors,omitempty"`
	Journal   string   `json:"journal,omitempty"`
	Year      int      `json:"year,omitempty"`
	DOI       string   `json:"doi,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Relevance string   `json:"relevance,omitempty"`
}

// PaperSearchResult is the content of a paper finding execution.
type PaperSearchResult struct {
	Query  string       `json:"query"`
	Papers []FoundPaper `json:"papers"`
	Raw    string       `json:"raw"`
}

// AbstractResult is the content of an abstract writing execution.
type AbstractResult struct {
	Abstract    string   `json:"abstract"`
	Background  string   `json:"background,omitempty"`
	Methods     string   `json:"methods,omitempty"`
	Results     string   `json:"results,omitempty"`
	Conclusions string   `json:"conclusions,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	WordCount   int      `json:"word_count"`
}

// Document is the content of the long-form writing units.
type Document struct {
	Title     string    `json:"title,omitempty"`
	Sections  []Section `json:"sections,omitempty"`
	Text      string    `json:"text"`
	WordCount int       `json:"word_count"`
}

// Idea is one research idea.
type Idea struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Hypothesis  string `json:"hypothesis,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Feasibility string `json:"feasibility,omitempty"`
}

// IdeaResult is the content of an idea generation execution.
type IdeaResult struct {
	Ideas []Idea `json:"ideas"`
	Raw   string `json:"raw"`
}

// Hypothesis is one testable hypothesis.
type Hypothesis struct {
	Statement  string `json:"statement"`
	Rationale  string `json:"rationale,omitempty"`
	Test       string `json:"test,omitempty"`
	Prediction string `json:"prediction,omitempty"`
}

// HypothesisResult is the content of a hypothesis generation execution.
type HypothesisResult struct {
	Hypotheses []Hypothesis `json:"hypotheses"`
	Raw        string       `json:"raw"`
}

// AnalysisResult is the content of a data analysis execution.
type AnalysisResult struct {
	Summary         string   `json:"summary,omitempty"`
	Findings        []string `json:"findings,omitempty"`
	Statistics      []string `json:"statistics,omitempty"`
	Interpretation  string   `json:"interpretation,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	Raw             string   `json:"raw"`
}

// ImageResult is the content of an image creation execution.
type ImageResult struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// Slide is one presentation slide.
type Slide struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// Presentation is the content of a presentation generation execution.
type Presentation struct {
	Title  string  `json:"title,omitempty"`
	Slides []Slide `json:"slides"`
}

// CodeResult is the content of a code generation execution.
type CodeResult struct {
	Language    string      `json:"language"`
	Code        string      `json:"code"`
	Blocks      []CodeBlock `json:"blocks,omitempty"`
	Explanation string      `json:"explanation,omitempty"`
}

// Translation is the content of a translation execution.
type Translation struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
	SourceLanguage string `json:"source_language,omitempty"`
}

// SummaryResult is the content of a summarization execution.
type SummaryResult struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points,omitempty"`
}

// LiteratureReview is the content of a literature review execution.
type LiteratureReview struct {
	Overview   string    `json:"overview,omitempty"`
	Themes     []string  `json:"themes,omitempty"`
	Gaps       []string  `json:"gaps,omitempty"`
	Directions []string  `json:"directions,omitempty"`
	Sections   []Section `json:"sections,omitempty"`
	Raw        string    `json:"raw"`
}

func parsePapers(raw string, in *Input) any {
	result := &PaperSearchResult{Query: in.Text, Papers: []FoundPaper{}, Raw: raw}
	for _, block := range numberedBlocks(raw) {
		paper := FoundPaper{
			Title:     labelled(block, "Title"),
			Authors:   splitList(labelled(block, "Authors", "Author")),
			Journal:   labelled(block, "Journal", "Venue"),
			Year:      parseYear(labelled(block, "Year", "Published")),
			DOI:       labelled(block, "DOI"),
			Summary:   labelled(block, "Summary", "Key Findings"),
			Relevance: labelled(block, "Relevance"),
		}
		if paper.Title == "" {
			paper.Title = firstLine(block)
		}
		if paper.Title == "" {
			continue
		}
		result.Papers = append(result.Papers, paper)
	}
	if limit := resultLimit(in, 0); limit > 0 && len(result.Papers) > limit {
		result.Papers = result.Papers[:limit]
	}
	return result
}

var keywordsTail = regexp.MustCompile(`(?is)[*_\s]*key ?words[*_\s]*:.*$`)

func parseAbstract(raw string, _ *Input) any {
	sections, _ := parseMarkdown(raw)
	part := func(names ...string) string {
		return stripKeywords(sectionText(findSection(sections, names...)))
	}
	result := &AbstractResult{
		Background:  part("background", "introduction"),
		Methods:     part("method"),
		Results:     part("result"),
		Conclusions: part("conclusion"),
		Keywords:    splitList(labelled(raw, "Keywords", "Key words")),
	}

	var parts []string
	for _, s := range sections {
		if strings.Contains(strings.ToLower(s.Heading), "keyword") {
			continue
		}
		if body := stripKeywords(sectionText(&s)); body != "" {
			parts = append(parts, body)
		}
	}
	result.Abstract = strings.Join(parts, "\n\n")
	if result.Abstract == "" {
		result.Abstract = stripKeywords(raw)
	}
	result.WordCount = wordCount(result.Abstract)
	return result
}

// stripKeywords removes a trailing "Keywords:" line.
func stripKeywords(body string) string {
	return strings.TrimSpace(keywordsTail.ReplaceAllString(body, ""))
}

func parseDocument(raw string, in *Input) any {
	sections, _ := parseMarkdown(raw)
	doc := &Document{Title: in.Title, Sections: sections, Text: strings.TrimSpace(raw)}
	if len(sections) > 0 && sections[0].Heading != "" && doc.Title == "" {
		doc.Title = sections[0].Heading
	}
	for _, section := range sections {
		doc.WordCount += wordCount(section.Heading) + wordCount(sectionText(&section))
	}
	return doc
}

func parseIdeas(raw string, _ *Input) any {
	result := &IdeaResult{Ideas: []Idea{}, Raw: raw}
	for _, block := range numberedBlocks(raw) {
		idea := Idea{
			Title:       labelled(block, "Title"),
			Description: labelled(block, "Description"),
			Hypothesis:  labelled(block, "Hypothesis"),
			Impact:      labelled(block, "Impact", "Potential Impact"),
			Feasibility: strings.ToLower(labelled(block, "Feasibility")),
		}
		if idea.Title == "" {
			idea.Title = firstLine(block)
		}
		if idea.Title != "" {
			result.Ideas = append(result.Ideas, idea)
		}
	}
	return result
}

func parseHypotheses(raw string, _ *Input) any {
	result := &HypothesisResult{Hypotheses: []Hypothesis{}, Raw: raw}
	for _, block := range numberedBlocks(raw) {
		h := Hypothesis{
			Statement:  labelled(block, "Hypothesis", "Statement"),
			Rationale:  labelled(block, "Rationale"),
			Test:       labelled(block, "Test", "Experimental Test", "Experiment"),
			Prediction: labelled(block, "Prediction", "Expected Outcome"),
		}
		if h.Statement == "" {
			h.Statement = firstLine(block)
		}
		if h.Statement != "" {
			result.Hypotheses = append(result.Hypotheses, h)
		}
	}
	return result
}

func parseAnalysis(raw string, _ *Input) any {
	sections, _ := parseMarkdown(raw)
	result := &AnalysisResult{Raw: raw}
	if s := findSection(sections, "summary", "overview"); s != nil {
		result.Summary = sectionText(s)
	}
	if s := findSection(sections, "finding", "pattern"); s != nil {
		result.Findings = itemsOrBody(s)
	}
	if s := findSection(sections, "statistic"); s != nil {
		result.Statistics = itemsOrBody(s)
	}
	if s := findSection(sections, "interpretation"); s != nil {
		result.Interpretation = sectionText(s)
	}
	if s := findSection(sections, "recommend", "next step"); s != nil {
		result.Recommendations = itemsOrBody(s)
	}
	return result
}

func itemsOrBody(s *Section) []string {
	if len(s.Items) > 0 {
		return s.Items
	}
	if s.Body != "" {
		return []string{s.Body}
	}
	return nil
}

func parseImage(url string, in *Input) any {
	return &ImageResult{URL: strings.TrimSpace(url), Prompt: imagePrompt(in)}
}

func parsePresentation(raw string, in *Input) any {
	sections, _ := parseMarkdown(raw)
	p := &Presentation{Title: in.Title, Slides: []Slide{}}
	for _, s := range sections {
		if s.Heading == "" {
			if p.Title == "" {
				p.Title = firstLine(s.Body)
			}
			continue
		}
		slide := Slide{Title: s.Heading, Notes: labelled(s.Body, "Notes", "Speaker Notes")}
		for _, item := range s.Items {
			if strings.HasPrefix(strings.ToLower(item), "notes:") {
				if slide.Notes == "" {
					slide.Notes = strings.TrimSpace(item[len("notes:"):])
				}
				continue
			}
			slide.Bullets = append(slide.Bullets, item)
		}
		p.Slides = append(p.Slides, slide)
	}
	return p
}

func parseCode(raw string, in *Input) any {
	sections, blocks := parseMarkdown(raw)
	result := &CodeResult{Language: paramString(in, "language", "python"), Blocks: blocks}
	if len(blocks) > 0 {
		result.Code = blocks[0].Code
		if blocks[0].Language != "" {
			result.Language = blocks[0].Language
		}
	} else {
		result.Code = strings.TrimSpace(raw)
	}

	var explanation []string
	for _, s := range sections {
		if t := sectionText(&s); t != "" {
			explanation = append(explanation, t)
		}
	}
	result.Explanation = strings.Join(explanation, "\n\n")
	return result
}

func parseTranslation(raw string, in *Input) any {
	return &Translation{
		Text:           strings.TrimSpace(raw),
		TargetLanguage: paramString(in, "target_language", ""),
		SourceLanguage: paramString(in, "source_language", ""),
	}
}

func parseSummary(raw string, _ *Input) any {
	sections, _ := parseMarkdown(raw)
	result := &SummaryResult{}
	var summary []string
	for _, s := range sections {
		heading := strings.ToLower(s.Heading)
		if strings.Contains(heading, "key point") || strings.Contains(heading, "highlight") {
			result.KeyPoints = append(result.KeyPoints, s.Items...)
			if s.Body != "" {
				summary = append(summary, s.Body)
			}
			continue
		}
		if s.Body != "" {
			summary = append(summary, s.Body)
		}
		if len(s.Items) > 0 && result.KeyPoints == nil && s.Heading == "" {
			result.KeyPoints = append(result.KeyPoints, s.Items...)
		}
	}
	result.Summary = strings.Join(summary, "\n\n")
	if result.Summary == "" {
		result.Summary = strings.TrimSpace(raw)
	}
	return result
}

func parseReview(raw string, _ *Input) any {
	sections, _ := parseMarkdown(raw)
	review := &LiteratureReview{Sections: sections, Raw: raw}
	if s := findSection(sections, "overview", "introduction"); s != nil {
		review.Overview = sectionText(s)
	}
	if s := findSection(sections, "theme"); s != nil {
		review.Themes = itemsOrBody(s)
	}
	if s := findSection(sections, "gap"); s != nil {
		review.Gaps = itemsOrBody(s)
	}
	if s := findSection(sections, "future", "direction"); s != nil {
		review.Directions = itemsOrBody(s)
	}
	return review
}
