package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ProcessingStatus is the coarse pipeline progress indicator on an owning
// record. It tracks which stage last touched the record, not queue membership:
// a record can be failed while no job for it exists in any queue.
type ProcessingStatus string

const (
	StatusQueued     ProcessingStatus = "queued"
	StatusExtracting ProcessingStatus = "extracting"
	StatusAnalyzing  ProcessingStatus = "analyzing"
	StatusEnriching  ProcessingStatus = "enriching"
	StatusValidating ProcessingStatus = "validating"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
	StatusRetrying   ProcessingStatus = "retrying"
)

// OwnerKind distinguishes the two record kinds that can be pipeline subjects.
// Books expose a structured chapter list; documents receive text only.
type OwnerKind string

const (
	KindBook     OwnerKind = "book"
	KindDocument OwnerKind = "document"
)

// ParseOwnerKind validates a kind string from an API path or job payload.
func ParseOwnerKind(s string) (OwnerKind, error) {
	switch OwnerKind(s) {
	case KindBook:
		return KindBook, nil
	case KindDocument:
		return KindDocument, nil
	default:
		return "", errors.New("unknown owner kind: " + s)
	}
}

// FileType identifies the source document format.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeEPUB FileType = "epub"
	FileTypeDOCX FileType = "docx"
	FileTypeTXT  FileType = "txt"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	return scanJSON(value, a, "StringArray")
}

// Chapter is one entry of a book's normalized chapter list.
type Chapter struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

// ChapterList stores chapters as a JSON column.
type ChapterList []Chapter

func (l ChapterList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *ChapterList) Scan(value interface{}) error {
	if value == nil {
		*l = ChapterList{}
		return nil
	}
	return scanJSON(value, l, "ChapterList")
}

// Concept is one extracted concept produced by AI enrichment.
type Concept struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ConceptList stores concepts as a JSON column.
type ConceptList []Concept

func (l ConceptList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *ConceptList) Scan(value interface{}) error {
	if value == nil {
		*l = ConceptList{}
		return nil
	}
	return scanJSON(value, l, "ConceptList")
}

// QuizQuestion is one generated quiz question.
type QuizQuestion struct {
	Question   string   `json:"question"`
	Options    []string `json:"options,omitempty"`
	Answer     string   `json:"answer"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// QuestionList stores quiz questions as a JSON column.
type QuestionList []QuizQuestion

func (l QuestionList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *QuestionList) Scan(value interface{}) error {
	if value == nil {
		*l = QuestionList{}
		return nil
	}
	return scanJSON(value, l, "QuestionList")
}

// ValidationIssue records one failed validation rule on a record.
type ValidationIssue struct {
	RuleID      string   `json:"rule_id"`
	Severity    string   `json:"severity"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// IssueList stores validation issues as a JSON column.
type IssueList []ValidationIssue

func (l IssueList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *IssueList) Scan(value interface{}) error {
	if value == nil {
		*l = IssueList{}
		return nil
	}
	return scanJSON(value, l, "IssueList")
}

// Book is an owning record with chapter structure. One of the two pipeline
// subject kinds; the only one that receives a chapters write from extraction.
type Book struct {
	ID            string   `gorm:"type:text;primaryKey" json:"id"`
	Title         string   `gorm:"type:text" json:"title"`
	Author        string   `gorm:"type:text" json:"author,omitempty"`
	FileType      FileType `gorm:"type:text" json:"file_type"`
	SourceFileURL string   `gorm:"type:text" json:"source_file_url"`

	ExtractedText string      `gorm:"type:text" json:"extracted_text,omitempty"`
	Chapters      ChapterList `gorm:"type:text" json:"chapters,omitempty"`
	WordCount     int         `json:"word_count"`
	Language      string      `gorm:"type:text" json:"language,omitempty"`
	PageCount     int         `json:"page_count,omitempty"`

	Keywords    StringArray `gorm:"type:text" json:"keywords,omitempty"`
	AutoSummary string      `gorm:"type:text" json:"auto_summary,omitempty"`
	Sentiment   string      `gorm:"type:text" json:"sentiment,omitempty"`
	Entities    StringArray `gorm:"type:text" json:"entities,omitempty"`

	AISummary     string       `gorm:"type:text" json:"ai_summary,omitempty"`
	Concepts      ConceptList  `gorm:"type:text" json:"concepts,omitempty"`
	QuizQuestions QuestionList `gorm:"type:text" json:"quiz_questions,omitempty"`
	Difficulty    string       `gorm:"type:text" json:"difficulty,omitempty"`

	ValidationScore     *int        `json:"validation_score,omitempty"`
	ValidationIssues    IssueList   `gorm:"type:text" json:"validation_issues,omitempty"`
	Recommendations     StringArray `gorm:"type:text" json:"recommendations,omitempty"`
	ProcessingStatus    ProcessingStatus `gorm:"type:text;index:idx_books_status;default:queued" json:"processing_status"`
	ProcessingLog       string      `gorm:"type:text" json:"processing_log,omitempty"`
	ProcessingCompleted bool        `gorm:"default:false" json:"processing_completed"`
	ProcessedAt         *time.Time  `json:"processed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Book.
func (Book) TableName() string {
	return "books"
}

// Document is an owning record without chapter structure. It receives
// extracted text only; a chapters write is silently skipped for this kind.
type Document struct {
	ID            string   `gorm:"type:text;primaryKey" json:"id"`
	Title         string   `gorm:"type:text" json:"title"`
	FileType      FileType `gorm:"type:text" json:"file_type"`
	SourceFileURL string   `gorm:"type:text" json:"source_file_url"`

	ExtractedText string `gorm:"type:text" json:"extracted_text,omitempty"`
	WordCount     int    `json:"word_count"`
	Language      string `gorm:"type:text" json:"language,omitempty"`
	PageCount     int    `json:"page_count,omitempty"`

	Keywords    StringArray `gorm:"type:text" json:"keywords,omitempty"`
	AutoSummary string      `gorm:"type:text" json:"auto_summary,omitempty"`
	Sentiment   string      `gorm:"type:text" json:"sentiment,omitempty"`
	Entities    StringArray `gorm:"type:text" json:"entities,omitempty"`

	AISummary     string       `gorm:"type:text" json:"ai_summary,omitempty"`
	Concepts      ConceptList  `gorm:"type:text" json:"concepts,omitempty"`
	QuizQuestions QuestionList `gorm:"type:text" json:"quiz_questions,omitempty"`
	Difficulty    string       `gorm:"type:text" json:"difficulty,omitempty"`

	ValidationScore     *int        `json:"validation_score,omitempty"`
	ValidationIssues    IssueList   `gorm:"type:text" json:"validation_issues,omitempty"`
	Recommendations     StringArray `gorm:"type:text" json:"recommendations,omitempty"`
	ProcessingStatus    ProcessingStatus `gorm:"type:text;index:idx_documents_status;default:queued" json:"processing_status"`
	ProcessingLog       string      `gorm:"type:text" json:"processing_log,omitempty"`
	ProcessingCompleted bool        `gorm:"default:false" json:"processing_completed"`
	ProcessedAt         *time.Time  `json:"processed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string {
	return "documents"
}

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(value, dest interface{}, typeName string) error {
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan " + typeName)
		}
		bytes = []byte(str)
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, dest)
}
