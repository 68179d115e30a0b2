package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type FailureKind int

const (
	FailureTransport FailureKind = iota + 1
	FailureStatus
	FailureMalformed
	FailureEmpty
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "NetworkOrTransportError"
	case FailureStatus:
		return "ExplicitFailureStatus"
	case FailureMalformed:
		return "MalformedResponse"
	case FailureEmpty:
		return "EmptyResult"
	}
	return "Unknown"
}

// PrimaryFailure explains why the brokerage answer cannot be used.
type PrimaryFailure struct {
	Kind    FailureKind
	Code    string
	Message string
	Err     error
}

func (f *PrimaryFailure) Error() string {
	switch f.Kind {
	case FailureTransport:
		if f.Err != nil {
			return fmt.Sprintf("Dhan request failed: %v", f.Err)
		}
		return "No response from Dhan API"
	case FailureStatus:
		if f.Code != "" {
			return fmt.Sprintf("Dhan API error: %s - %s", f.Code, f.Message)
		}
		return fmt.Sprintf("Dhan API error: %s", f.Message)
	case FailureMalformed:
		return fmt.Sprintf("Malformed Dhan response: %s", f.Message)
	case FailureEmpty:
		return "Dhan returned no data points"
	}
	return f.Message
}

func (f *PrimaryFailure) Unwrap() error { return f.Err }

// PrimaryOutcome is either a usable data payload or a failure, never both.
type PrimaryOutcome struct {
	Data    json.RawMessage
	Failure *PrimaryFailure
}

func (o PrimaryOutcome) OK() bool { return o.Failure == nil }

func primaryOK(data json.RawMessage) PrimaryOutcome {
	return PrimaryOutcome{Data: data}
}

func primaryFailed(kind FailureKind, code, msg string, err error) PrimaryOutcome {
	return PrimaryOutcome{Failure: &PrimaryFailure{Kind: kind, Code: code, Message: msg, Err: err}}
}

// ClassifyEnvelope maps a raw {status, remarks, data} reply to an outcome.
// The checks run in a fixed order and the first match wins.
func ClassifyEnvelope(raw []byte) PrimaryOutcome {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return primaryFailed(FailureTransport, "", "", nil)
	}

	var top any
	if err := json.Unmarshal(raw, &top); err != nil {
		return primaryFailed(FailureMalformed, "", "response is not valid JSON", err)
	}
	if s, ok := top.(string); ok {
		if strings.TrimSpace(s) == "" {
			return primaryFailed(FailureTransport, "", "", nil)
		}
		return primaryFailed(FailureStatus, "", s, nil)
	}
	if _, ok := top.(map[string]any); !ok {
		return primaryFailed(FailureMalformed, "", fmt.Sprintf("unexpected response type %T", top), nil)
	}

	var env struct {
		Status  string          `json:"status"`
		Remarks json.RawMessage `json:"remarks"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return primaryFailed(FailureMalformed, "", "unexpected envelope shape", err)
	}
	if strings.EqualFold(env.Status, "failure") {
		code, msg := parseRemarks(env.Remarks)
		return primaryFailed(FailureStatus, code, msg, nil)
	}
	if env.Data == nil {
		return primaryFailed(FailureMalformed, "", "response has no data field", nil)
	}
	empty, err := seriesEmpty(env.Data)
	if err != nil {
		return primaryFailed(FailureMalformed, "", err.Error(), nil)
	}
	if empty {
		return primaryFailed(FailureEmpty, "", "", nil)
	}
	return primaryOK(env.Data)
}

func parseRemarks(raw json.RawMessage) (string, string) {
	if len(raw) == 0 {
		return "", "unknown failure"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			s = "unknown failure"
		}
		return "", s
	}
	var m struct {
		ErrorCode    string `json:"error_code"`
		ErrorType    string `json:"error_type"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", string(raw)
	}
	msg := m.ErrorMessage
	if msg == "" {
		msg = m.ErrorType
	}
	if msg == "" {
		msg = "unknown failure"
	}
	return m.ErrorCode, msg
}

// seriesEmpty reports whether a data payload carries zero points. Shapes that
// the normalizer cannot read at all are reported as errors.
func seriesEmpty(data json.RawMessage) (bool, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return false, fmt.Errorf("data is not valid JSON")
	}
	switch t := v.(type) {
	case nil:
		return true, nil
	case string:
		if t == "" {
			return true, nil
		}
		return false, fmt.Errorf("data is a string")
	case []any:
		return len(t) == 0, nil
	case map[string]any:
		if len(t) == 0 {
			return true, nil
		}
		ts, ok := t["timestamp"]
		if !ok {
			return false, fmt.Errorf("data has no timestamp series")
		}
		arr, ok := ts.([]any)
		if !ok {
			return false, fmt.Errorf("timestamp series is %T", ts)
		}
		return len(arr) == 0, nil
	}
	return false, fmt.Errorf("data is %T", v)
}
