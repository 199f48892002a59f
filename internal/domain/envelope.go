package domain

// Stage queue names. One durable queue per pipeline stage.
const (
	QueueExtraction = "extraction"
	QueueLinguistic = "linguistic-analysis"
	QueueEnrichment = "ai-enrichment"
	QueueValidation = "validation"
)

// Priority orders jobs within a queue; higher values are dequeued first.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 5
	PriorityHigh     Priority = 10
	PriorityCritical Priority = 20
)

// ParsePriority maps an API-level priority name to its queue value.
// Unknown names fall back to normal.
func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "critical":
		return PriorityCritical
	default:
		return PriorityNormal
	}
}

// JobSpine is the common envelope header shared by every stage payload.
// UserID is carried for log attribution only; the pipeline performs no
// authorization with it.
type JobSpine struct {
	DocumentID string    `json:"document_id"`
	OwnerKind  OwnerKind `json:"owner_kind"`
	Priority   Priority  `json:"priority"`
	UserID     string    `json:"user_id,omitempty"`
}

// ExtractionJob is the envelope for the extraction stage.
type ExtractionJob struct {
	JobSpine
	FileType      FileType `json:"file_type"`
	SourceFileURL string   `json:"source_file_url"`
}

// AnalysisFeature selects one linguistic-analysis output.
type AnalysisFeature string

const (
	FeatureKeywords  AnalysisFeature = "keywords"
	FeatureSummary   AnalysisFeature = "summary"
	FeatureSentiment AnalysisFeature = "sentiment"
	FeatureEntities  AnalysisFeature = "entities"
)

// AllAnalysisFeatures is the feature set extraction requests on fan-out.
func AllAnalysisFeatures() []AnalysisFeature {
	return []AnalysisFeature{FeatureKeywords, FeatureSummary, FeatureSentiment, FeatureEntities}
}

// LinguisticJob is the envelope for the linguistic-analysis stage. It carries
// the extracted text inline; this stage never re-reads the owning record.
type LinguisticJob struct {
	JobSpine
	ExtractedText string            `json:"extracted_text"`
	Language      string            `json:"language,omitempty"`
	Features      []AnalysisFeature `json:"features"`
}

// EnrichmentTask selects one AI-enrichment output.
type EnrichmentTask string

const (
	TaskSummary    EnrichmentTask = "summary"
	TaskConcepts   EnrichmentTask = "concept-extraction"
	TaskQuiz       EnrichmentTask = "quiz-generation"
	TaskDifficulty EnrichmentTask = "difficulty-assessment"
)

// DefaultEnrichmentTasks is the task list extraction requests on fan-out.
func DefaultEnrichmentTasks() []EnrichmentTask {
	return []EnrichmentTask{TaskSummary, TaskConcepts, TaskQuiz, TaskDifficulty}
}

// EnrichmentJob is the envelope for the AI-enrichment stage. It deliberately
// carries no text: the worker re-fetches the current extracted text from the
// owning record because this stage races the linguistic-analysis sibling.
type EnrichmentJob struct {
	JobSpine
	ContentType string           `json:"content_type"`
	Tasks       []EnrichmentTask `json:"tasks"`
	Context     string           `json:"context,omitempty"`
}

// ValidationRule names one quality check to run against a record.
type ValidationRule struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Category string `json:"category"`
}

// Rule severities and their score penalties.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// DefaultValidationRules is the fixed rule set the enrichment stage attaches
// when it enqueues validation.
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		{ID: "content-min-length", Severity: SeverityError, Category: "content"},
		{ID: "language-detected", Severity: SeverityWarning, Category: "metadata"},
		{ID: "summary-present", Severity: SeverityWarning, Category: "enrichment"},
		{ID: "quiz-present", Severity: SeverityWarning, Category: "enrichment"},
		{ID: "keywords-present", Severity: SeverityWarning, Category: "analysis"},
	}
}

// ValidationJob is the envelope for the terminal validation stage.
type ValidationJob struct {
	JobSpine
	ValidationType string           `json:"validation_type"`
	Rules          []ValidationRule `json:"rules"`
}
