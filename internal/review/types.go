/**
 * Review comment model for the plan review worker.
 *
 * Severity and Category are closed enumerations: every comment that leaves
 * the decoder carries values from these sets, regardless of what the
 * upstream reviewer produced.
 */

package review

// Severity classifies how serious a review comment is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityBlocking Severity = "blocking"
)

// Category identifies the review discipline a comment belongs to.
type Category string

const (
	CategoryZoning         Category = "zoning"
	CategoryUtilities      Category = "utilities"
	CategoryStormwater     Category = "stormwater"
	CategoryTransportation Category = "transportation"
	CategoryFire           Category = "fire"
	CategoryLandscape      Category = "landscape"
	CategoryADA            Category = "ada"
	CategoryGeneral        Category = "general"
)

// ValidSeverity reports whether s is one of the closed severity values.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityInfo, SeverityMinor, SeverityMajor, SeverityBlocking:
		return true
	}
	return false
}

// ValidCategory reports whether c is one of the closed category values.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryZoning, CategoryUtilities, CategoryStormwater,
		CategoryTransportation, CategoryFire, CategoryLandscape,
		CategoryADA, CategoryGeneral:
		return true
	}
	return false
}

// Region is a rectangle on a plan sheet in normalized page coordinates.
type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Comment is a single spatially-located review comment.
type Comment struct {
	PageKey      string   `json:"page_key"`
	Region       *Region  `json:"region,omitempty"`
	Body         string   `json:"body"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
	Severity     Severity `json:"severity"`
	Category     Category `json:"category"`
	CodeRefs     []string `json:"code_refs,omitempty"`
	Reasoning    string   `json:"reasoning,omitempty"`
}

// CommentSet is the wire container the reviewer is asked to produce.
type CommentSet struct {
	Comments []Comment `json:"comments"`
}

// Status reports the outcome of a submission.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// SubmissionResult is the caller-facing outcome of one plan submission.
// RawResponse is always retained for audit, even when decoding fell back.
type SubmissionResult struct {
	Status       Status     `json:"status"`
	CommentsData CommentSet `json:"comments_data"`
	RawResponse  string     `json:"raw_response,omitempty"`
	ExternalRef  string     `json:"external_ref,omitempty"`
	ReviewerName string     `json:"reviewer_name,omitempty"`
	Error        string     `json:"error,omitempty"`
	Details      string     `json:"details,omitempty"`
}
