package extraction

import "strings"

const promptTemplate = `You are an API that extracts structured data from text.

Given a transcription of a patient introducing themselves, return ONLY valid JSON (no prose).

Extract these fields:
- first_name
- last_name
- phone_number (digits only)
- address (string, full sentence)

If any field is missing or uncertain, leave it as null.

Input text:
"""{transcript}"""

Return JSON in this exact format (and nothing else):

{
  "first_name": "string or null",
  "last_name": "string or null",
  "phone_number": "string or null",
  "address": "string or null"
}
`

// BuildPrompt embeds the transcript in the extraction instructions.
func BuildPrompt(transcript string) string {
	return strings.Replace(promptTemplate, "{transcript}", transcript, 1)
}
