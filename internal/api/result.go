package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Result is a decoded JSON response. When OK is false, Errors holds at least
// one message and Data is the zero value.
type Result[T any] struct {
	OK      bool
	Data    T
	Errors  []string
	Message string
}

// Err returns the result's errors joined into one, or nil when OK.
func (r Result[T]) Err() error {
	if r.OK {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, msg := range r.Errors {
		errs[i] = errors.New(msg)
	}
	return errors.Join(errs...)
}

func failure[T any](msg string) Result[T] {
	return Result[T]{Errors: []string{msg}}
}

// Decode validates a response and decodes its body into T. Non-2xx
// responses, bodies that are not JSON objects and bodies carrying a
// non-empty errors member (a string or a list of strings) are failures.
// The msg member fills Message in both cases.
func Decode[T any](resp *Response) Result[T] {
	if resp.Status < 200 || resp.Status > 299 {
		e := newError(resp.Status, resp.Body)
		if e.Message != "" {
			return failure[T](e.Message)
		}
		return failure[T](fmt.Sprintf("unexpected status %d", resp.Status))
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &envelope); err != nil || envelope == nil {
		return failure[T]("response is not a JSON object")
	}

	var message string
	if raw, ok := envelope["msg"]; ok {
		if err := json.Unmarshal(raw, &message); err != nil {
			return failure[T]("msg is not a string")
		}
	}

	if raw, ok := envelope["errors"]; ok {
		errs, err := decodeErrors(raw)
		if err != nil {
			return failure[T](err.Error())
		}
		if len(errs) > 0 {
			return Result[T]{Errors: errs, Message: message}
		}
	}

	var data T
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return failure[T](fmt.Sprintf("decoding response: %v", err))
	}
	return Result[T]{OK: true, Data: data, Message: message}
}

// decodeErrors accepts null, a string or a list of strings.
func decodeErrors(raw json.RawMessage) ([]string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("errors must hold strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("errors must be a string or list, got %T", v)
	}
}
