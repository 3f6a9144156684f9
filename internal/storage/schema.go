// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

// SchemaVersion tracks the database schema version for migrations.
const SchemaVersion = 1

// Schema creates the history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- One row per successful generation
CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    source TEXT NOT NULL,
    config TEXT NOT NULL,       -- JSON model.Config
    model TEXT NOT NULL,
    provider TEXT NOT NULL DEFAULT '',
    variants TEXT NOT NULL,     -- JSON array of variants
    created_at INTEGER NOT NULL -- Unix nanoseconds
);

CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
CREATE INDEX IF NOT EXISTS idx_generations_mode ON generations(mode);

-- Thumbs feedback, at most one rating per variant
CREATE TABLE IF NOT EXISTS feedback (
    generation_id TEXT NOT NULL,
    idx INTEGER NOT NULL,
    rating TEXT NOT NULL,       -- up, down
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (generation_id, idx),
    FOREIGN KEY(generation_id) REFERENCES generations(id) ON DELETE CASCADE
);

-- Latest explanation per variant
CREATE TABLE IF NOT EXISTS explanations (
    generation_id TEXT NOT NULL,
    idx INTEGER NOT NULL,
    text TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (generation_id, idx),
    FOREIGN KEY(generation_id) REFERENCES generations(id) ON DELETE CASCADE
);
`

// InitMetadata records the schema version.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
