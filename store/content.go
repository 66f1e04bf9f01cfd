package store

// SourceType identifies a kind of user content the AI core can use as context.
type SourceType string

const (
	SourcePaper            SourceType = "paper"
	SourceNotebookEntry    SourceType = "notebook_entry"
	SourceProtocol         SourceType = "protocol"
	SourceExperiment       SourceType = "experiment"
	SourceProcessedContent SourceType = "processed_content"
)

// SourceTypes returns every known source type.
func SourceTypes() []SourceType {
	return []SourceType{
		SourceProcessedContent,
		SourcePaper,
		SourceNotebookEntry,
		SourceExperiment,
		SourceProtocol,
	}
}

// UserProfile is the read-only subset of a user record used to personalize prompts.
type UserProfile struct {
	ID                int32
	FirstName         string
	LastName          string
	Email             string
	Role              string
	ResearchInterests []string
	Expertise         []string
}

// Paper is a publication the user added to their library.
type Paper struct {
	ID              string
	UserID          int32
	Title           string
	Abstract        string
	Authors         []string
	Journal         string
	PublicationYear int
	Keywords        []string
	CreatedTs       int64
}

// NotebookEntry is a lab notebook entry.
type NotebookEntry struct {
	ID        string
	UserID    int32
	Title     string
	Content   string
	EntryType string
	Tags      []string
	CreatedTs int64
}

// Protocol is a lab protocol authored by the user.
type Protocol struct {
	ID          string
	UserID      int32
	Title       string
	Description string
	Category    string
	Steps       string
	CreatedTs   int64
}

// Experiment is an experiment record.
type Experiment struct {
	ID          string
	UserID      int32
	Title       string
	Description string
	Hypothesis  string
	Status      string
	Results     string
	CreatedTs   int64
}

// ProcessedContent is a unit of user content pre-processed for retrieval,
// optionally carrying an embedding vector.
type ProcessedContent struct {
	ID         string
	UserID     int32
	SourceType SourceType
	SourceID   string
	Title      string
	Content    string
	Summary    string
	Keywords   []string
	Embedding  []float32
	CreatedTs  int64
}

// HasEmbedding reports whether the item carries a usable vector.
func (c *ProcessedContent) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// FindContent specifies the conditions for listing a user's content.
type FindContent struct {
	UserID int32
	// Limit caps the number of rows; zero means the driver default.
	Limit int
}

// FindProcessedContent specifies the conditions for listing processed content.
type FindProcessedContent struct {
	UserID int32
	// WithEmbedding restricts the result to rows that carry a vector.
	WithEmbedding bool
	// TitleOrKeywords matches rows whose title contains any of the words
	// (case-insensitive) or whose keywords contain any of them.
	TitleOrKeywords []string
	Limit           int
}

// DefaultListLimit is used for per-source listings when FindContent.Limit is zero.
const DefaultListLimit = 10
