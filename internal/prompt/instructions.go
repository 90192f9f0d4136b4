package prompt

import (
	"fmt"
	"strings"
)

// Builder composes the full text-grounded message for one reviewer
// profile. The registry binds a builder to each profile at lookup time so
// the pipeline never branches on reviewer names.
type Builder func(title string, ocrText string) string

const outputFormat = `Respond with a single JSON object of the form:
{"comments": [{"page_key": "...", "region": {"x": 0, "y": 0, "w": 0, "h": 0}, "body": "...", "suggested_fix": "...", "severity": "info|minor|major|blocking", "category": "zoning|utilities|stormwater|transportation|fire|landscape|ada|general", "code_refs": ["..."]}]}
Do not wrap the JSON in markdown fences or add commentary outside it.`

// StormwaterInstructions builds the specialized stormwater-compliance
// review message, grounding the reviewer in the extracted plan text.
func StormwaterInstructions(title string, ocrText string) string {
	var sb strings.Builder
	sb.WriteString("Please review this development plan for stormwater compliance.\n\n")
	fmt.Fprintf(&sb, "Plan Title: %s\n\n", title)
	sb.WriteString("This is the first sheet of the plan set that needs review according to municipal stormwater regulations.\n\n")
	sb.WriteString(ocrText)
	sb.WriteString("\n\nBased on the extracted text and layout information above, please provide your review focusing on:\n")
	sb.WriteString("1. Stormwater management requirements\n")
	sb.WriteString("2. Impervious surface calculations and compliance\n")
	sb.WriteString("3. Drainage and erosion control measures\n")
	sb.WriteString("4. UDO Section 9 compliance\n")
	sb.WriteString("5. Any missing information or documentation\n\n")
	sb.WriteString("When referencing specific areas of concern, use the position information from the extracted text blocks to provide precise feedback.\n\n")
	sb.WriteString(outputFormat)
	return sb.String()
}

// GenericInstructions builds the message for any other registered
// reviewer, relying on the external agent's own document-search
// capability for its discipline rules.
func GenericInstructions(title string, ocrText string) string {
	var sb strings.Builder
	sb.WriteString("Please review this development plan.\n\n")
	fmt.Fprintf(&sb, "Plan Title: %s\n\n", title)
	sb.WriteString("This is the first sheet of the plan set that needs review according to your role.\n\n")
	sb.WriteString(ocrText)
	sb.WriteString("\n\nRely on your file search tool for generating comments. Please provide your review.\n\n")
	sb.WriteString(outputFormat)
	return sb.String()
}

// VisionInstructions builds the message accompanying the first-sheet
// image in vision+schema mode. Output shape is enforced by the response
// schema, not the message.
func VisionInstructions(title string) string {
	var sb strings.Builder
	sb.WriteString("Please review the attached first sheet of this development plan set.\n\n")
	fmt.Fprintf(&sb, "Plan Title: %s\n\n", title)
	sb.WriteString("Examine the sheet image and produce located review comments. ")
	sb.WriteString("Express each comment's region in percent of the sheet width and height, origin at the top-left corner.")
	return sb.String()
}
