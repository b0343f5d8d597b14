// util/json.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

///////////////////////////////////////////////////////////////////////////
// JSON

// DuplicateJSONKey is a key that appears more than once in the same JSON
// object; Path is the dotted path of the enclosing object.
type DuplicateJSONKey struct {
	Path string
	Key  string
}

// FindDuplicateJSONKeys walks the token stream of data and returns every
// key that repeats within a single object. Keys are compared without
// regard to case, as encoding/json matches them to struct fields. It
// silently keeps the last value for a repeated key, which hides typos in
// hand-edited configuration files.
func FindDuplicateJSONKeys(data []byte) []DuplicateJSONKey {
	type level struct {
		object    bool
		seen      map[string]bool
		expectKey bool
		keyed     bool // this container is the value of a key in its parent
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var stack []level
	var path []string
	var dups []DuplicateJSONKey

	// valueDone is called after a complete value inside the top container.
	valueDone := func() {
		if n := len(stack); n > 0 && stack[n-1].object {
			stack[n-1].expectKey = true
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		}
	}
	open := func(object bool) {
		keyed := len(stack) > 0 && stack[len(stack)-1].object
		stack = append(stack, level{object: object, seen: make(map[string]bool), expectKey: object, keyed: keyed})
	}
	closeLevel := func() {
		keyed := stack[len(stack)-1].keyed
		stack = stack[:len(stack)-1]
		if keyed {
			valueDone()
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return dups
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				open(true)
			case '[':
				open(false)
			case '}', ']':
				if len(stack) > 0 {
					closeLevel()
				}
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].expectKey {
				top := &stack[n-1]
				key := strings.ToLower(v)
				if top.seen[key] {
					dups = append(dups, DuplicateJSONKey{Path: strings.Join(path, "."), Key: v})
				}
				top.seen[key] = true
				top.expectKey = false
				path = append(path, v)
			} else {
				valueDone()
			}
		default:
			valueDone()
		}
	}
}

// UnmarshalJSONBytes decodes b into out, rejecting fields that out does
// not have, and reports syntax and type errors with the line and
// character at which they occurred.
func UnmarshalJSONBytes[T any](b []byte, out *T) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	err := dec.Decode(out)
	if err == nil {
		return nil
	}

	position := func(offset int64) (line, char int) {
		line, char = 1, 1
		for i := 0; i < int(offset) && i < len(b); i++ {
			if b[i] == '\n' {
				line++
				char = 1
			} else {
				char++
			}
		}
		return
	}

	var serr *json.SyntaxError
	var terr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &serr):
		line, char := position(serr.Offset)
		return fmt.Errorf("Error at line %d, character %d: %v", line, char, serr)
	case errors.As(err, &terr):
		line, char := position(terr.Offset)
		return fmt.Errorf("Error at line %d, character %d: %s value for %q invalid for type %s",
			line, char, terr.Value, terr.Field, terr.Type.String())
	default:
		return err
	}
}

// CheckedUnmarshalJSON records duplicate keys and decoding errors in e
// and, if there were none, leaves the decoded value in out.
func CheckedUnmarshalJSON[T any](b []byte, out *T, e *ErrorLogger) {
	for _, dup := range FindDuplicateJSONKeys(b) {
		if dup.Path == "" {
			e.ErrorString("%q: key repeated", dup.Key)
		} else {
			e.ErrorString("%s: %q: key repeated", dup.Path, dup.Key)
		}
	}
	if e.HaveErrors() {
		return
	}
	if err := UnmarshalJSONBytes(b, out); err != nil {
		e.Error(err)
	}
}
