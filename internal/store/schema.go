package store

// sqliteSchema and postgresSchema are applied on open. Both are idempotent.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id             TEXT PRIMARY KEY,
	created_at     INTEGER NOT NULL,
	file_name      TEXT NOT NULL,
	kind           TEXT NOT NULL,
	ai_probability REAL NOT NULL,
	owner_id       TEXT NOT NULL DEFAULT '',
	payload        BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);

CREATE TABLE IF NOT EXISTS detections (
	id              TEXT PRIMARY KEY,
	time            INTEGER NOT NULL,
	kind            TEXT NOT NULL,
	source          TEXT NOT NULL DEFAULT '',
	ai_probability  REAL NOT NULL,
	confidence      REAL NOT NULL,
	risk_band       TEXT NOT NULL,
	processing_time REAL NOT NULL,
	fallback        INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_detections_time ON detections(time);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id             TEXT PRIMARY KEY,
	created_at     TIMESTAMPTZ NOT NULL,
	file_name      TEXT NOT NULL,
	kind           TEXT NOT NULL,
	ai_probability DOUBLE PRECISION NOT NULL,
	owner_id       TEXT NOT NULL DEFAULT '',
	payload        BYTEA NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);

CREATE TABLE IF NOT EXISTS detections (
	id              TEXT PRIMARY KEY,
	time            TIMESTAMPTZ NOT NULL,
	kind            TEXT NOT NULL,
	source          TEXT NOT NULL DEFAULT '',
	ai_probability  DOUBLE PRECISION NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	risk_band       TEXT NOT NULL,
	processing_time DOUBLE PRECISION NOT NULL,
	fallback        BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_detections_time ON detections(time);
`
