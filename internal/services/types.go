// internal/services/types.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/farmchain/farmchain-backend/internal/utils"
)

// Numeric is a request field that clients send either as a JSON number or as
// a string. The text is kept verbatim so no precision is lost before parsing.
type Numeric string

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*n = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(strings.TrimSpace(s))
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("expected a number or numeric string, got %s", data)
		}
		*n = Numeric(num.String())
	}
	return nil
}

func (n Numeric) String() string {
	return string(n)
}

// ValidationError reports a request rejected before any ledger interaction.
type ValidationError struct {
	Fields []utils.ValidationError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func newValidationError(err error) *ValidationError {
	fields := utils.GetValidationErrors(err)
	if len(fields) == 0 {
		fields = []utils.ValidationError{{Field: "request", Tag: "invalid", Message: err.Error()}}
	}
	return &ValidationError{Fields: fields}
}

func fieldError(field, tag, message string) *ValidationError {
	return &ValidationError{Fields: []utils.ValidationError{{Field: field, Tag: tag, Message: message}}}
}

func validate(req interface{}) error {
	if err := utils.ValidateStruct(req); err != nil {
		return newValidationError(err)
	}
	return nil
}
