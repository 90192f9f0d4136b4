/**
 * Response decoder for external reviewer output.
 *
 * Reviewer responses are ideally JSON, but in practice arrive as prose,
 * prose wrapping JSON, or malformed JSON. Decoding resolves to exactly one
 * of three terminal states: Parsed (clean JSON), Recovered (JSON substring
 * pulled out of prose), or Fallback (a single synthetic comment wrapping
 * the raw text). The decoder never returns an error: input that resists
 * both JSON paths still yields exactly one fallback comment.
 */

package review

import (
	"encoding/json"
	"strings"
)

// DecodeState identifies which decode path produced the comment list.
type DecodeState string

const (
	DecodeParsed    DecodeState = "parsed"
	DecodeRecovered DecodeState = "recovered"
	DecodeFallback  DecodeState = "fallback"
)

const fallbackSuggestedFix = "Please review the reviewer's feedback for specific recommendations."

// Decoded carries the comment list together with the decode state that
// produced it.
type Decoded struct {
	State    DecodeState
	Comments []Comment
}

// Decode parses raw reviewer output into a validated comment list.
// reviewerName seeds the fallback comment's category; pass "" when the
// submission was not tied to a named reviewer.
func Decode(raw string, reviewerName string) Decoded {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "{") {
		if comments, ok := parseCommentSet(trimmed); ok {
			return Decoded{State: DecodeParsed, Comments: comments}
		}
	}

	// The reviewer often wraps its JSON in prose ("Here is my review: {...}").
	// Recover the outermost brace-delimited substring and try again.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if comments, ok := parseCommentSet(raw[start : end+1]); ok {
			return Decoded{State: DecodeRecovered, Comments: comments}
		}
	}

	return Decoded{
		State:    DecodeFallback,
		Comments: []Comment{fallbackComment(raw, reviewerName)},
	}
}

// parseCommentSet attempts to interpret s as a JSON object with a usable
// comments array. An out-of-enum severity or category anywhere in the
// array invalidates the whole payload so the caller falls through to the
// next decode path.
func parseCommentSet(s string) ([]Comment, bool) {
	var set CommentSet
	if err := json.Unmarshal([]byte(s), &set); err != nil {
		return nil, false
	}
	if set.Comments == nil {
		return nil, false
	}
	for _, c := range set.Comments {
		if !ValidSeverity(c.Severity) || !ValidCategory(c.Category) {
			return nil, false
		}
	}
	return set.Comments, true
}

// fallbackComment wraps an unparseable response in a single major comment
// pinned to the first sheet.
func fallbackComment(raw string, reviewerName string) Comment {
	return Comment{
		PageKey:      "Sheet 1",
		Region:       &Region{X: 0, Y: 0, W: 100, H: 100},
		Body:         raw,
		SuggestedFix: fallbackSuggestedFix,
		Severity:     SeverityMajor,
		Category:     fallbackCategory(reviewerName),
		CodeRefs:     []string{},
	}
}

// fallbackCategory derives a category from the reviewer name ("Stormwater
// Reviewer" -> "stormwater"). Names outside the closed set map to general;
// an absent name defaults to stormwater, matching the distinguished
// reviewer profile.
func fallbackCategory(reviewerName string) Category {
	if reviewerName == "" {
		return CategoryStormwater
	}
	derived := strings.ToLower(reviewerName)
	derived = strings.TrimSuffix(derived, " reviewer")
	if c := Category(derived); ValidCategory(c) {
		return c
	}
	return CategoryGeneral
}
