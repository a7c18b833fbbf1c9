package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS personas (
    id TEXT PRIMARY KEY,
    display_name TEXT DEFAULT '',
    telegram_user_id INTEGER,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_personas_telegram_user_id
    ON personas(telegram_user_id) WHERE telegram_user_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS onboarding_checkpoints (
    persona_id TEXT PRIMARY KEY REFERENCES personas(id),
    last_completed_step INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS step_progress (
    persona_id TEXT NOT NULL REFERENCES personas(id),
    step_index INTEGER NOT NULL,
    status TEXT NOT NULL,
    completed_at DATETIME,
    PRIMARY KEY (persona_id, step_index)
);

CREATE TABLE IF NOT EXISTS step_submissions (
    persona_id TEXT NOT NULL REFERENCES personas(id),
    step_index INTEGER NOT NULL,
    payload TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (persona_id, step_index)
);

CREATE TABLE IF NOT EXISTS resume_uploads (
    persona_id TEXT PRIMARY KEY REFERENCES personas(id),
    file_name TEXT NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    size INTEGER NOT NULL,
    sha256 TEXT NOT NULL,
    content BLOB NOT NULL,
    uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS telegram_chat_state (
    telegram_user_id INTEGER PRIMARY KEY,
    persona_id TEXT NOT NULL REFERENCES personas(id),
    last_prompt_message_id INTEGER DEFAULT 0
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
