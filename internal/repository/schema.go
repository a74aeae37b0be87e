package repository

// Schema definitions for the FraudGuard archive.
// Compatible with both SQLite and PostgreSQL.

const schemaResults = `
CREATE TABLE IF NOT EXISTS results (
    session_id TEXT NOT NULL,
    id TEXT NOT NULL,
    kind TEXT NOT NULL,
    merchant_category TEXT NOT NULL,
    location TEXT NOT NULL,
    amount REAL NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    input_session_id TEXT NOT NULL DEFAULT '',
    timestamp TEXT NOT NULL,
    fraud_status TEXT NOT NULL,
    probability REAL NOT NULL,
    explanation TEXT NOT NULL,
    detailed_explanation TEXT NOT NULL,
    summary TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    classification TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (session_id, id)
);

CREATE INDEX IF NOT EXISTS idx_results_session ON results(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_results_status ON results(session_id, fraud_status);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaResults,
	}
}
