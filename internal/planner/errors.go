package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ai-fitness-planner/internal/llm"

	"google.golang.org/api/googleapi"
)

// ErrorKind is the cascade's classification of an attempt failure. It drives
// the degrade path, not the error's concrete type.
type ErrorKind int

const (
	// ErrorTransport covers timeouts and network failures.
	ErrorTransport ErrorKind = iota
	// ErrorSchema covers responses that do not standardize into a plan.
	ErrorSchema
	// ErrorQuota covers rate-limit / quota rejections from the model API.
	ErrorQuota
	// ErrorIncomplete covers syntactically valid responses with fewer units
	// than requested.
	ErrorIncomplete
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorSchema:
		return "schema"
	case ErrorQuota:
		return "quota"
	case ErrorIncomplete:
		return "incomplete"
	default:
		return "transport"
	}
}

// SchemaError reports model output missing required unit-level fields.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s", e.Reason)
}

// IncompleteError reports a day or batch with the wrong unit count.
type IncompleteError struct {
	Day  string
	Got  int
	Want int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("incomplete result for %s: got %d units, want %d", e.Day, e.Got, e.Want)
}

// classifyError maps an attempt error onto the cascade's taxonomy.
func classifyError(err error) ErrorKind {
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return ErrorSchema
	}

	var incompleteErr *IncompleteError
	if errors.As(err, &incompleteErr) {
		return ErrorIncomplete
	}

	var gapiErr *googleapi.Error
	if errors.As(err, &gapiErr) {
		if gapiErr.Code == http.StatusTooManyRequests {
			return ErrorQuota
		}
		msg := strings.ToLower(gapiErr.Message)
		if strings.Contains(msg, "quota") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "resource exhausted") {
			return ErrorQuota
		}
		return ErrorTransport
	}

	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return ErrorQuota
		}
		return ErrorTransport
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ErrorSchema
	}

	return ErrorTransport
}
