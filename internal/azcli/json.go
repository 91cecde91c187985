package azcli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNotObject = errors.New("output is not a JSON object")

// DecodeObject parses the JSON object printed by `az ... -o json`.
func DecodeObject(stdout string) (map[string]any, error) {
	var ret map[string]any
	dec := json.NewDecoder(strings.NewReader(stdout))
	dec.UseNumber()
	if err := dec.Decode(&ret); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	if ret == nil {
		return nil, ErrNotObject
	}
	return ret, nil
}

// DecodeList parses the JSON array printed by `az ... list -o json`.
func DecodeList[T any](stdout string) ([]T, error) {
	var ret []T
	if err := json.Unmarshal(bytes.TrimSpace([]byte(stdout)), &ret); err != nil {
		return nil, fmt.Errorf("decoding json list: %w", err)
	}
	return ret, nil
}

// Lookup returns the value at a dot separated key path, e.g. storageProfile.osDisk.id
func Lookup(obj map[string]any, path string) (any, bool) {
	var cur any = obj
	for key := range strings.SplitSeq(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// LookupString returns the non-empty scalar at path in its textual form.
func LookupString(obj map[string]any, path string) (string, bool) {
	v, ok := Lookup(obj, path)
	if !ok {
		return "", false
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case json.Number:
		s = x.String()
	case bool:
		s = strconv.FormatBool(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return "", false
	}
	return s, s != ""
}
