package param_parser

import (
	"encoding/json"
	"strings"

	"diffusion_session_bot/entities"
)

// profileDocument is the JSON profile shape: an optional params sub-object
// taken verbatim, plus either input_size or size carrying the dimensions.
type profileDocument struct {
	Params    json.RawMessage `json:"params"`
	InputSize *entities.Size  `json:"input_size"`
	Size      *entities.Size  `json:"size"`
}

// LooksLikeJSON classifies a raw string by shape: JSON if and only if the
// first character is '{' and the last non-whitespace character is '}'.
// Deliberately cheap, no trial parse. Malformed JSON can slip through as
// grammar text, which yields a low-confidence but non-crashing partial
// result.
func LooksLikeJSON(text string) bool {
	if len(text) == 0 || text[0] != '{' {
		return false
	}

	return strings.HasSuffix(strings.TrimRight(text, " \t\r\n"), "}")
}

// ParseDocument recovers a partial parameter set from a JSON profile
// document. Unknown fields pass through untouched and missing fields stay
// absent; the only failure mode is invalid JSON.
func ParseDocument(text string) (entities.ParamsPatch, error) {
	var doc profileDocument

	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return entities.ParamsPatch{}, NewMalformedDocumentError(err)
	}

	var patch entities.ParamsPatch

	if len(doc.Params) > 0 {
		if err := json.Unmarshal(doc.Params, &patch); err != nil {
			return entities.ParamsPatch{}, NewMalformedDocumentError(err)
		}
	}

	size := doc.InputSize
	if size == nil {
		size = doc.Size
	}

	if size != nil {
		patch.Width = &size.Width
		patch.Height = &size.Height
	}

	return patch, nil
}

// ParseComment recovers a partial parameter set from a pasted or embedded
// string, picking the document parser for JSON-shaped text and the comment
// grammar for everything else.
func ParseComment(text string) (entities.ParamsPatch, error) {
	if LooksLikeJSON(text) {
		return ParseDocument(text)
	}

	return ParseGrammar(text), nil
}
