package translator

import (
	"strings"

	"github.com/projectcapital/capital/pkg/endpoint"
)

// EndpointPrompt asks the model for a single endpoint line. The question is
// appended after the trailing "prompt:" marker.
func EndpointPrompt(user string) string {
	var b strings.Builder
	b.WriteString("Convert the following prompt to a single API call, adhere to this format strictly do not add any extra query parameters.\n")
	b.WriteString("Return only the api call and nothing else.\n\n")
	b.WriteString(endpoint.Describe(user))
	b.WriteString("\nprompt: ")
	return b.String()
}

// IntentPrompt asks the model to pick a template and its parameters as JSON.
// The model never writes a URL in this mode.
func IntentPrompt(user string) string {
	var b strings.Builder
	b.WriteString("Decide which spending query answers the following prompt and extract its parameters.\n\n")
	b.WriteString(endpoint.Describe(user))
	b.WriteString("\nRespond with valid JSON only, no markdown, in this format:\n")
	b.WriteString(`{"template": "<name>", "categories": ["<category>", ...], "start_date": "YYYY-MM-DD", "end_date": "YYYY-MM-DD"}`)
	b.WriteString("\n\nUse the template name exactly as listed. If no query fits, use \"none\" as the template.\n")
	b.WriteString("\nprompt: ")
	return b.String()
}
