package arcgisdl

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CodeInvalidToken is the server error code for an invalid or expired token.
const CodeInvalidToken = 498

// Result is the outcome of fetching one JSON document. A failed fetch is a
// soft failure: it carries the reason but behaves like an empty document,
// so callers treat it as "nothing found here".
type Result struct {
	// Body is the raw JSON as received from the server or the cache.
	Body []byte

	// Object is Body decoded as a JSON object. Numbers are json.Number so
	// that re-serialization reproduces the server's literals.
	Object map[string]any

	// Err is the reason for a soft failure. Nil on success.
	Err error
}

// Success decodes body into a Result. A body that is not a JSON object
// yields a soft failure.
func Success(body []byte) Result {
	obj, err := decodeObject(body)
	if err != nil {
		return SoftFailure(Errorf(EUNAVAILABLE, "decode response: %v", err))
	}
	return Result{Body: body, Object: obj}
}

// SoftFailure returns an empty Result carrying the reason it is empty.
func SoftFailure(err error) Result {
	return Result{Err: err}
}

// Failed reports whether the fetch failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Empty reports whether the result holds no data, either because the fetch
// failed or because the server returned an empty object.
func (r Result) Empty() bool {
	return r.Err != nil || len(r.Object) == 0
}

// Decode unmarshals the raw body into v.
func (r Result) Decode(v any) error {
	if r.Empty() {
		return Errorf(ENOTFOUND, "empty result")
	}
	return json.Unmarshal(r.Body, v)
}

// ServerError is the error object ArcGIS servers embed in a 200 response.
type ServerError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// ServerError returns the embedded server error, or nil if there is none.
func (r Result) ServerError() *ServerError {
	if r.Empty() {
		return nil
	}
	if _, ok := r.Object["error"]; !ok {
		return nil
	}
	var payload struct {
		Error *ServerError `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &payload); err != nil {
		return nil
	}
	return payload.Error
}

func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	return obj, nil
}
