package postgres

// schemaStatements create the visits table and its secondary indexes.
// The table gets a generated primary key; lookups are served by the
// descending timestamp index (recent visits) and the ip index.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS visits (
		id              SERIAL PRIMARY KEY,
		visit_id        VARCHAR(36) NOT NULL,
		timestamp       TIMESTAMPTZ NOT NULL,
		ip              VARCHAR(64) NOT NULL,
		user_agent      TEXT,
		url             TEXT,
		referer         TEXT,
		method          VARCHAR(16),
		accept_language TEXT,
		accept_encoding TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits (timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_visits_ip ON visits (ip)`,
}

const insertVisitQuery = `INSERT INTO visits
	(visit_id, timestamp, ip, user_agent, url, referer, method, accept_language, accept_encoding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const recentVisitsQuery = `SELECT visit_id, timestamp, ip, user_agent, url, referer, method, accept_language, accept_encoding
	FROM visits ORDER BY timestamp DESC LIMIT $1`

const countVisitsQuery = `SELECT COUNT(*) FROM visits`

const listTablesQuery = `SELECT table_name FROM information_schema.tables
	WHERE table_schema = 'public' ORDER BY table_name`
