/**
 * Reviewer registry.
 *
 * Maps a reviewer name to its external-agent reference, submission mode,
 * and instruction builder. Backed by a name-keyed JSON document
 * (reviewers.json); the worker never mutates it. Lookup resolves the
 * per-reviewer strategy once, so downstream code carries a Profile
 * instead of re-branching on the name.
 */

package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/planroom/review-worker/internal/errors"
	"github.com/planroom/review-worker/internal/prompt"
)

// SubmissionMode tags how a profile's plan is presented to the agent.
type SubmissionMode string

const (
	// ModeTextGrounded submits OCR text with position annotations.
	ModeTextGrounded SubmissionMode = "text-grounded"
	// ModeVisionSchema submits the first-sheet image under a strict
	// response schema. Not bound to registry entries; see pipeline.
	ModeVisionSchema SubmissionMode = "vision-schema"
)

// StormwaterReviewerName is the distinguished profile carrying the
// specialized stormwater checklist.
const StormwaterReviewerName = "Stormwater Reviewer"

// Profile is a resolved reviewer: immutable for the lifetime of one
// submission.
type Profile struct {
	Name         string
	AgentRef     string
	Mode         SubmissionMode
	Instructions prompt.Builder
}

type reviewerEntry struct {
	Name        string `json:"name"`
	AssistantID string `json:"assistant_id"`
}

type reviewerDocument struct {
	Reviewers []reviewerEntry `json:"reviewers"`
}

// Registry resolves reviewer names to profiles.
type Registry struct {
	entries map[string]reviewerEntry
	names   []string
}

// LoadFromFile reads the reviewer document from path.
func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reviewer configuration: %w", err)
	}
	return Load(data)
}

// Load parses a reviewer document.
func Load(data []byte) (*Registry, error) {
	var doc reviewerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse reviewer configuration: %w", err)
	}

	r := &Registry{entries: make(map[string]reviewerEntry, len(doc.Reviewers))}
	for _, e := range doc.Reviewers {
		if e.Name == "" {
			return nil, fmt.Errorf("reviewer entry missing name")
		}
		if _, dup := r.entries[e.Name]; dup {
			return nil, fmt.Errorf("duplicate reviewer name: %s", e.Name)
		}
		r.entries[e.Name] = e
		r.names = append(r.names, e.Name)
	}
	return r, nil
}

// Lookup resolves a reviewer name to its profile. The stormwater reviewer
// binds the specialized checklist builder; every other registered name
// binds the generic builder. Both are text-grounded.
func (r *Registry) Lookup(name string) (*Profile, error) {
	entry, ok := r.entries[name]
	if !ok {
		return nil, errors.NewReviewerNotFoundError(name)
	}

	builder := prompt.GenericInstructions
	if entry.Name == StormwaterReviewerName {
		builder = prompt.StormwaterInstructions
	}

	return &Profile{
		Name:         entry.Name,
		AgentRef:     entry.AssistantID,
		Mode:         ModeTextGrounded,
		Instructions: builder,
	}, nil
}

// List returns the registered reviewer names in document order.
func (r *Registry) List() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
