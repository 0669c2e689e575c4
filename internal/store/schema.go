package store

const schemaDDL = `
CREATE TABLE IF NOT EXISTS pair_state (
	pair_id     TEXT PRIMARY KEY,
	account     TEXT NOT NULL,
	position    TEXT NOT NULL DEFAULT 'FLAT',
	qty1        INTEGER NOT NULL DEFAULT 0,
	qty2        INTEGER NOT NULL DEFAULT 0,
	last_opened INTEGER NOT NULL DEFAULT 0,
	last_closed INTEGER NOT NULL DEFAULT 0,
	model_state TEXT NOT NULL DEFAULT '',
	updated     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	pair_id      TEXT NOT NULL,
	account      TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	side         TEXT NOT NULL,
	quantity     INTEGER NOT NULL,
	price        REAL NOT NULL,
	quote_price  REAL NOT NULL DEFAULT 0,
	commission   TEXT NOT NULL DEFAULT '0',
	realized_pnl TEXT NOT NULL DEFAULT '0',
	latency_ms   INTEGER NOT NULL DEFAULT 0,
	order_id     INTEGER NOT NULL,
	opening      BOOLEAN NOT NULL DEFAULT 0,
	time         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_pair ON transactions(pair_id);
CREATE INDEX IF NOT EXISTS idx_transactions_time ON transactions(time);

CREATE TABLE IF NOT EXISTS history (
	id         TEXT PRIMARY KEY,
	pair_id    TEXT NOT NULL,
	account    TEXT NOT NULL,
	symbol1    TEXT NOT NULL,
	symbol2    TEXT NOT NULL,
	action     TEXT NOT NULL,
	position   TEXT NOT NULL,
	zscore     REAL NOT NULL DEFAULT 0,
	pnl        TEXT NOT NULL DEFAULT '0',
	pnl_pct    REAL NOT NULL DEFAULT 0,
	commission TEXT NOT NULL DEFAULT '0',
	reason     TEXT NOT NULL DEFAULT '',
	time       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_pair ON history(pair_id, time);

CREATE TABLE IF NOT EXISTS interventions (
	id      TEXT PRIMARY KEY,
	pair_id TEXT NOT NULL,
	account TEXT NOT NULL,
	reason  TEXT NOT NULL,
	time    INTEGER NOT NULL,
	cleared INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_interventions_pair ON interventions(pair_id, cleared);
`
