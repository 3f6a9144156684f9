// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package variant parses and validates a backend's raw reply against the
// numbered-key JSON contract.
//
// A valid reply is exactly one JSON object whose keys "1", "2", ... hold the
// variants in order. Search replies hold {"emoji", "name"} objects, all other
// modes hold strings. Non-numeric keys are ignored and extra numbered keys
// beyond the required count are dropped.
//
// # Errors
//
// Failures are reported as *ParseError with one of three kinds, each matched
// by a sentinel through errors.Is:
//
//   - ErrMalformedJSON: the reply is not a single JSON value
//   - ErrWrongShape: not an object, or a variant has the wrong type
//   - ErrTooFewVariants: fewer numbered keys than the mode requires
//
// # Usage
//
//	variants, err := variant.Parse(`{"1":"a","2":"b","3":"c"}`, model.ModeEmojify)
//	if errors.Is(err, variant.ErrTooFewVariants) {
//	    // the backend under-produced
//	}
package variant
