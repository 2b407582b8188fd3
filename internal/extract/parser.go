package extract

import (
	"encoding/json"
	"regexp"
)

// Model output is untrusted: the JSON array may be bare, fenced in a
// markdown code block, or absent entirely. Each parse outcome is explicit so
// callers never use errors for control flow on the common paths.

var (
	fencedArrayRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")
	bareArrayRe   = regexp.MustCompile(`(?s)\[.*?\]`)
)

// arrayOutcome classifies what locating a JSON array in raw output produced.
type arrayOutcome int

const (
	// outcomeNoArray: nothing array-shaped in the response. Treated as
	// "model found nothing", not an error.
	outcomeNoArray arrayOutcome = iota
	// outcomeBadJSON: array-shaped text that does not decode. Also treated
	// as zero results at the extractor boundary.
	outcomeBadJSON
	// outcomeParsed: a decoded array of candidate objects. Individual items
	// may still fail validation.
	outcomeParsed
)

// locateJSONArray extracts the first JSON array from raw model output,
// preferring a fenced code block over a bare bracketed match.
func locateJSONArray(raw string) (string, bool) {
	if m := fencedArrayRe.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if m := bareArrayRe.FindString(raw); m != "" {
		return m, true
	}
	return "", false
}

// decodeArray locates and decodes a JSON array into raw candidate items.
func decodeArray(raw string) ([]json.RawMessage, arrayOutcome) {
	arr, ok := locateJSONArray(raw)
	if !ok {
		return nil, outcomeNoArray
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		return nil, outcomeBadJSON
	}
	return items, outcomeParsed
}

// confidenceAlias carries both spellings the model emits for confidence.
// confidence_score wins when both are present.
type confidenceAlias struct {
	ConfidenceScore *float64 `json:"confidence_score"`
	Confidence      *float64 `json:"confidence"`
}

func (c confidenceAlias) value() (float64, bool) {
	if c.ConfidenceScore != nil {
		return *c.ConfidenceScore, true
	}
	if c.Confidence != nil {
		return *c.Confidence, true
	}
	return 0, false
}
