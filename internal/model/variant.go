// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
)

// Variant is one generated alternative. Search results carry Emoji and Name;
// every other mode carries Text.
type Variant struct {
	Text  string
	Emoji string
	Name  string
}

// TextVariant returns a plain text variant.
func TextVariant(text string) Variant {
	return Variant{Text: text}
}

// EmojiVariant returns a search result variant.
func EmojiVariant(emoji, name string) Variant {
	return Variant{Emoji: emoji, Name: name}
}

// IsEmoji reports whether v is a search result.
func (v Variant) IsEmoji() bool {
	return v.Emoji != "" || v.Name != ""
}

// String renders the variant for display and copying.
func (v Variant) String() string {
	if v.IsEmoji() {
		return v.Emoji + " " + v.Name
	}
	return v.Text
}

// Copyable returns the text a user would paste: the emoji for search
// results, the whole text otherwise.
func (v Variant) Copyable() string {
	if v.IsEmoji() {
		return v.Emoji
	}
	return v.Text
}

type emojiVariantJSON struct {
	Emoji string `json:"emoji"`
	Name  string `json:"name"`
}

// MarshalJSON encodes a search result as {"emoji","name"} and anything else
// as a JSON string.
func (v Variant) MarshalJSON() ([]byte, error) {
	if v.IsEmoji() {
		return json.Marshal(emojiVariantJSON{Emoji: v.Emoji, Name: v.Name})
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON accepts either encoding produced by MarshalJSON.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*v = TextVariant(text)
		return nil
	}
	var pair emojiVariantJSON
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.New("variant must be a string or an {emoji, name} object")
	}
	*v = EmojiVariant(pair.Emoji, pair.Name)
	return nil
}
