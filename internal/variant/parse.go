// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package variant

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Elephant333/emojify/internal/model"
	"github.com/Elephant333/emojify/internal/prompt"
)

// numberedValue is one entry of the reply object with a numeric key.
type numberedValue struct {
	key   string
	index int
	value any
}

// Parse validates raw against the contract for mode and returns exactly the
// required number of variants in ascending key order.
func Parse(raw string, mode model.Mode) ([]model.Variant, error) {
	required := prompt.Required(mode)
	if required == 0 {
		return nil, fmt.Errorf("parse reply: %w: %s", model.ErrUnknownMode, mode)
	}

	value, err := decodeStrict(raw)
	if err != nil {
		return nil, newParseError(MalformedJSON, err, "reply is not valid JSON")
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, newParseError(WrongShape, nil, "reply is %s, want object", describe(value))
	}

	entries := numbered(obj)
	if len(entries) < required {
		return nil, newParseError(TooFewVariants, nil, "got %d numbered variants, want %d", len(entries), required)
	}
	entries = entries[:required]

	variants := make([]model.Variant, 0, required)
	for _, e := range entries {
		v, err := convert(e, mode)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// decodeStrict decodes exactly one JSON value and rejects trailing content.
func decodeStrict(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return nil, errors.New("trailing data after JSON value")
		}
		return nil, fmt.Errorf("trailing data after JSON value: %w", err)
	}
	return value, nil
}

// numbered returns the entries keyed "1", "2", ... sorted by numeric value.
// "0", signed and zero-padded keys are not variant numbers.
func numbered(obj map[string]any) []numberedValue {
	entries := make([]numberedValue, 0, len(obj))
	for key, value := range obj {
		if !isDigits(key) {
			continue
		}
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 || strconv.Itoa(n) != key {
			continue
		}
		entries = append(entries, numberedValue{key: key, index: n, value: value})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].index < entries[j].index
	})
	return entries
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// convert checks one value against the mode's variant shape.
func convert(e numberedValue, mode model.Mode) (model.Variant, error) {
	if mode == model.ModeSearch {
		obj, ok := e.value.(map[string]any)
		if !ok {
			return model.Variant{}, newParseError(WrongShape, nil, "key %q is %s, want {emoji, name} object", e.key, describe(e.value))
		}
		emoji, _ := obj["emoji"].(string)
		name, _ := obj["name"].(string)
		if emoji == "" || name == "" {
			return model.Variant{}, newParseError(WrongShape, nil, "key %q needs non-empty string emoji and name", e.key)
		}
		return model.EmojiVariant(emoji, name), nil
	}

	text, ok := e.value.(string)
	if !ok {
		return model.Variant{}, newParseError(WrongShape, nil, "key %q is %s, want string", e.key, describe(e.value))
	}
	return model.TextVariant(text), nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
