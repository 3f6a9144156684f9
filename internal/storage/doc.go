// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists generation history in SQLite.
//
// Each successful generation is stored with its mode, source text,
// configuration, model, serving provider and variants. Variants can later
// receive thumbs up/down feedback and explanations.
//
// # Key Types
//
//   - Store: the SQLite database
//   - Generation: one stored generation with its feedback and explanations
//   - Rating: thumbs feedback for one variant
//   - HistorySink: adapts a Store to the engine's History hook
//
// # Usage
//
//	store, err := storage.Open(storage.Config{Path: storage.DefaultPath()})
//	defer store.Close()
//	id, err := store.SaveGeneration(ctx, storage.Generation{...})
//	err = store.SetFeedback(ctx, id, 0, storage.RatingUp)
//
// # Storage Location
//
// The database lives at ~/.emojify/history.db unless configured otherwise.
package storage
