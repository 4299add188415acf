package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	agent TEXT NOT NULL,
	date DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price TEXT NOT NULL,
	cash_after TEXT NOT NULL,
	holdings_after TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_agent_date ON trades(agent, date);

CREATE TABLE IF NOT EXISTS checkpoints (
	agent TEXT NOT NULL,
	date DATETIME NOT NULL,
	state TEXT NOT NULL,
	traded INTEGER NOT NULL,
	retries INTEGER NOT NULL,
	cash TEXT NOT NULL,
	holdings TEXT NOT NULL,
	PRIMARY KEY (agent, date)
);

CREATE TABLE IF NOT EXISTS equity (
	agent TEXT NOT NULL,
	date DATETIME NOT NULL,
	cash TEXT NOT NULL,
	equity TEXT NOT NULL,
	PRIMARY KEY (agent, date)
);
`
