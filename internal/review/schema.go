package review

// SchemaVersion tags the structured-output contract sent to vision-capable
// reviewers. Bump when the comment schema changes shape.
const SchemaVersion = "plan_review_comments_v1"

// CommentSchema returns the JSON schema constraining vision-mode reviewer
// output: an object with free-form reasoning plus the comments array. The
// schema is strict so the upstream model cannot introduce fields the
// decoder does not understand.
func CommentSchema() map[string]interface{} {
	commentProps := map[string]interface{}{
		"page_key": map[string]interface{}{"type": "string"},
		"region": map[string]interface{}{
			"type": []string{"object", "null"},
			"properties": map[string]interface{}{
				"x": map[string]interface{}{"type": "number"},
				"y": map[string]interface{}{"type": "number"},
				"w": map[string]interface{}{"type": "number"},
				"h": map[string]interface{}{"type": "number"},
			},
			"required":             []string{"x", "y", "w", "h"},
			"additionalProperties": false,
		},
		"body":          map[string]interface{}{"type": "string"},
		"suggested_fix": map[string]interface{}{"type": []string{"string", "null"}},
		"severity": map[string]interface{}{
			"type": "string",
			"enum": []string{
				string(SeverityInfo), string(SeverityMinor),
				string(SeverityMajor), string(SeverityBlocking),
			},
		},
		"category": map[string]interface{}{
			"type": "string",
			"enum": []string{
				string(CategoryZoning), string(CategoryUtilities),
				string(CategoryStormwater), string(CategoryTransportation),
				string(CategoryFire), string(CategoryLandscape),
				string(CategoryADA), string(CategoryGeneral),
			},
		},
		"code_refs": map[string]interface{}{
			"type":  []string{"array", "null"},
			"items": map[string]interface{}{"type": "string"},
		},
		"reasoning": map[string]interface{}{"type": []string{"string", "null"}},
	}

	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"reasoning": map[string]interface{}{"type": "string"},
			"comments": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":       "object",
					"properties": commentProps,
					"required": []string{
						"page_key", "region", "body", "suggested_fix",
						"severity", "category", "code_refs", "reasoning",
					},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"reasoning", "comments"},
		"additionalProperties": false,
	}
}
