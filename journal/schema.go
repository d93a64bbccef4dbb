package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	signal TEXT NOT NULL,
	confidence REAL NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL DEFAULT 0,
	take_profit REAL NOT NULL DEFAULT 0,
	units REAL NOT NULL,
	atr REAL NOT NULL DEFAULT 0,
	risk_pct REAL NOT NULL DEFAULT 0,
	exit_price REAL,
	exit_time DATETIME,
	profit_loss REAL,
	status TEXT NOT NULL DEFAULT 'open'
);

CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time);
CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	nav REAL NOT NULL,
	margin_used REAL NOT NULL,
	margin_available REAL NOT NULL,
	open_positions INTEGER NOT NULL,
	total_risk REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
