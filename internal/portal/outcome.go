package portal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// OutcomeKind classifies one submission. Every kind but OutcomeSuccess is
// recoverable and consumes one attempt.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeWrongGuess is an HTTP 400. The portal uses it for every
	// validation failure, a wrong captcha being the common case.
	OutcomeWrongGuess     OutcomeKind = "wrong_guess"
	OutcomeEmpty          OutcomeKind = "empty"
	OutcomeUpstreamError  OutcomeKind = "upstream_error"
	OutcomeTransportError OutcomeKind = "transport_error"
	OutcomeInvalidGuess   OutcomeKind = "invalid_guess"
)

type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	// Record holds the raw content payload of the first result entry when
	// Kind is OutcomeSuccess.
	Record map[string]any
	Err    error
}

func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

func (o Outcome) String() string {
	switch {
	case o.Err != nil:
		return fmt.Sprintf("%s: %v", o.Kind, o.Err)
	case o.StatusCode != 0:
		return fmt.Sprintf("%s (status %d)", o.Kind, o.StatusCode)
	default:
		return string(o.Kind)
	}
}

type searchEntry struct {
	Content json.RawMessage `json:"content"`
}

// Classify maps a lookup response to an outcome. A 200 is a success only when
// the body is a non-empty list whose first element carries a non-empty
// content object.
func Classify(statusCode int, body []byte) Outcome {
	switch statusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return Outcome{Kind: OutcomeWrongGuess, StatusCode: statusCode}
	default:
		return Outcome{Kind: OutcomeUpstreamError, StatusCode: statusCode}
	}

	var entries []searchEntry
	if err := json.Unmarshal(body, &entries); err != nil || len(entries) == 0 {
		return Outcome{Kind: OutcomeEmpty, StatusCode: statusCode}
	}

	var record map[string]any
	if err := json.Unmarshal(entries[0].Content, &record); err != nil || len(record) == 0 {
		return Outcome{Kind: OutcomeEmpty, StatusCode: statusCode}
	}

	return Outcome{Kind: OutcomeSuccess, StatusCode: statusCode, Record: record}
}
