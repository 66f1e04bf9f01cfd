package agent

// Base system prompts of the execution units.
const (
	promptPaperFinding           = "You are a research assistant specialized in finding and analyzing academic papers. Provide comprehensive search results with summaries, relevance scores, and key findings."
	promptAbstractWriting        = "You are a scientific writing assistant. Generate well-structured abstracts following academic standards (Background, Methods, Results, Conclusions)."
	promptContentWriting         = "You are a professional content writer. Create high-quality, well-structured content that is clear, concise, and engaging."
	promptIdeaGeneration         = "You are a research ideation expert. Generate creative, feasible, and innovative research ideas with clear hypotheses and potential impact."
	promptProposalWriting        = "You are a grant writing specialist. Create comprehensive research proposals with clear objectives, methodology, expected outcomes, and budget justification."
	promptDataAnalysis           = "You are a data analysis expert. Analyze experimental data, identify patterns, provide statistical insights, and suggest interpretations."
	promptImageCreation          = "You are an image generation assistant. Create visual content, scientific figures, and diagrams based on descriptions."
	promptPaperGeneration        = "You are a scientific paper writing assistant. Generate complete research papers with proper structure, citations, and academic rigor."
	promptPresentationGeneration = "You are a presentation creator. Generate professional presentation content with clear slides and engaging narratives."
	promptCodeGeneration         = "You are a code generation assistant. Write clean, well-documented, and efficient code."
	promptTranslation            = "You are a translation expert. Provide accurate, context-aware translations while preserving technical terminology."
	promptSummarization          = "You are a summarization expert. Create concise, informative summaries that capture key points and main findings."
	promptLiteratureReview       = "You are an expert in systematic literature reviews. Synthesize published work into themes, identify consensus and disagreement, and point out research gaps."
	promptHypothesisGeneration   = "You are a scientific hypothesis expert. Propose specific, testable hypotheses grounded in the user's data and the literature, each with a rationale and an experimental test."
	promptExperimentDesign       = "You are an experimental design expert. Design rigorous, reproducible experiments with explicit variables, controls and an analysis plan suited to the research question."
	promptProtocolOptimization   = "You are a laboratory protocol specialist. Improve protocols for efficiency, accuracy, cost, safety and reproducibility while keeping every step executable."
	promptQualityValidation      = "You are a scientific editor. Assess research documents objectively and report concrete strengths, weaknesses and the actions that would raise their quality."
	promptReferenceManagement    = "You are a reference librarian for researchers. Suggest real, verifiable references and format citations exactly in the requested style. Never invent DOIs."
	promptDataReading            = "You are a research data specialist. Describe the structure of data files, identify variables and patterns, and recommend suitable analyses."
	promptOutputFormatting       = "You are a manuscript formatting specialist. Reformat content to the requested journal or style guide without changing its scientific meaning."
	promptDraftCompilation       = "You are a scientific editor. Compile manuscript sections into one coherent draft with consistent terminology, transitions and formatting."
)

// Output instructions appended to user prompts so the answers stay parseable.
const (
	formatPapers = `For each paper use a numbered entry with these lines:
Title: <title>
Authors: <comma separated authors>
Journal: <journal>
Year: <year>
DOI: <doi if known>
Summary: <one or two sentences>
Relevance: <why it matters for the query>`

	formatAbstract = `Structure the abstract with markdown headings: ## Background, ## Methods, ## Results, ## Conclusions.
End with a line "Keywords: <comma separated keywords>".`

	formatIdeas = `Number each idea. For each idea give these lines:
Title: <short title>
Description: <what to investigate>
Hypothesis: <the testable claim>
Impact: <expected impact>
Feasibility: <high, medium or low>`

	formatHypotheses = `Number each hypothesis. For each hypothesis give these lines:
Hypothesis: <a single testable statement>
Rationale: <evidence that motivates it>
Test: <an experiment that could falsify it>
Prediction: <the expected observation if it holds>`

	formatSlides = `Write one markdown heading (##) per slide with the slide title, bullet points below it, and an optional line "Notes: <speaker notes>".`

	formatAnalysis = `Use the markdown headings ## Summary, ## Key Findings, ## Statistics, ## Interpretation and ## Recommendations. Use bullet points under Key Findings, Statistics and Recommendations.`

	formatSummary = `Start with a short summary paragraph, then a "## Key Points" heading with bullet points.`

	formatReview = `Use the markdown headings ## Overview, ## Themes, ## Research Gaps and ## Future Directions. List themes, gaps and directions as bullet points.`

	formatExperimentDesign = `Use the markdown headings ## Hypothesis, ## Objectives, ## Methodology, ## Materials, ## Procedure, ## Variables, ## Controls, ## Data Analysis Plan, ## Timeline, ## Ethical Considerations, ## Expected Outcomes and ## Risks. Use bullet points for lists and a numbered list for the procedure.`

	formatProtocolOptimization = `Use the markdown headings ## Optimized Protocol, ## Changes and ## Recommendations.
Under Optimized Protocol give the revised steps as a numbered list.
Under Changes number each change and give these lines:
Type: <efficiency, accuracy, cost, safety or reproducibility>
Change: <what changes>
Impact: <expected effect>
Rationale: <why it helps>
Under Recommendations use bullet points.`

	formatQualityValidation = `Start with a line "Overall Score: <0-100>". Then use the markdown headings ## Strengths, ## Weaknesses, ## Priority Actions and ## Recommendations with bullet points under each.`

	formatReferences = `Number each reference. For each reference give these lines:
Citation: <full reference in the requested style>
In-text: <in-text citation>
Year: <year>
DOI: <doi if known>`

	formatDataReading = `Use the markdown headings ## Summary, ## Variables, ## Patterns, ## Data Quality and ## Recommendations. Use bullet points under every heading except Summary.`

	formatOutput = `Use level one headings: # Formatted Output followed by the formatted content, # Compliance Issues with bullet points, and # Recommendations with bullet points. Use level two headings inside the formatted content.`
)
