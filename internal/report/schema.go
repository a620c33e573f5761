package report

import "encoding/json"

// SchemaName is the identifier sent with the response-format request.
const SchemaName = "research_result"

// Schema is the JSON Schema the model is asked to conform to for its final
// answer. The cross-field rules in Validate cannot be expressed here; they
// are checked after decoding.
const Schema = `{
  "type": "object",
  "properties": {
    "taskCompleted": {"type": "boolean"},
    "taskStatus": {
      "type": "string",
      "enum": ["completed", "partial", "not_found", "insufficient_data"]
    },
    "message": {"type": "string"},
    "findings": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "type": {"type": "string"},
          "launchDate": {"type": ["string", "null"]},
          "details": {"type": "object", "additionalProperties": true},
          "confidence": {"type": "string", "enum": ["high", "medium", "low"]},
          "sources": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "title": {"type": "string"},
                "url": {"type": "string"},
                "publishedDate": {"type": ["string", "null"]}
              },
              "required": ["title", "url"]
            }
          }
        },
        "required": ["name", "type", "confidence", "sources"]
      }
    },
    "searchStrategies": {"type": "array", "items": {"type": "string"}},
    "nextSteps": {"type": ["string", "null"]}
  },
  "required": ["taskCompleted", "taskStatus", "message", "findings", "searchStrategies"]
}`

// SchemaJSON returns the contract schema as raw JSON for provider requests.
func SchemaJSON() json.RawMessage {
	return json.RawMessage(Schema)
}
