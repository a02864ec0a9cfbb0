package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the value of the "v" field in every JSON response.
const EnvelopeVersion = 1

// Envelope wraps every JSON response body.
// Success responses carry data; failures carry error plus code and details.
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer is a huma.Transformer that wraps response bodies in an
// Envelope. Raw byte bodies such as CSV downloads pass through untouched.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case []byte, Envelope, *Envelope:
		return v, nil
	case *APIError:
		return Envelope{
			Version: EnvelopeVersion,
			Error:   body.Message,
			Code:    body.Code,
			Details: body.Details,
		}, nil
	case huma.StatusError:
		return Envelope{
			Version: EnvelopeVersion,
			Error:   body.Error(),
			Code:    statusToCode(body.GetStatus()),
		}, nil
	default:
		return Envelope{
			Version: EnvelopeVersion,
			Success: true,
			Data:    v,
		}, nil
	}
}
