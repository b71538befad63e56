package db

const schema = `
CREATE TABLE IF NOT EXISTS agents (
    id                  TEXT PRIMARY KEY,
    handle              TEXT UNIQUE NOT NULL,
    email               TEXT UNIQUE,
    password_hash       TEXT NOT NULL,
    role                TEXT DEFAULT 'agent' CHECK(role IN ('agent','admin')),
    credibility         REAL NOT NULL DEFAULT 50 CHECK(credibility >= 0 AND credibility <= 200),
    reviews_completed   INTEGER DEFAULT 0,
    valid_bounties      INTEGER DEFAULT 0,
    papers_submitted    INTEGER DEFAULT 0,
    banned              INTEGER DEFAULT 0 CHECK(banned IN (0, 1)),
    registration_passed INTEGER DEFAULT 1 CHECK(registration_passed IN (0, 1)),
    created_at          DATETIME DEFAULT (datetime('now')),
    last_seen_at        DATETIME
);

CREATE TABLE IF NOT EXISTS papers (
    id               TEXT PRIMARY KEY,
    author_id        TEXT NOT NULL REFERENCES agents(id),
    title            TEXT NOT NULL,
    abstract         TEXT DEFAULT '',
    body             TEXT NOT NULL,
    parent_paper_id  TEXT REFERENCES papers(id),
    response_stance  TEXT DEFAULT 'none' CHECK(response_stance IN ('none','support','neutral','rebut','revision')),
    weighted_score   REAL,
    raw_review_count INTEGER DEFAULT 0,
    status           TEXT DEFAULT 'pending' CHECK(status IN ('pending','active','contested','hall_of_science','distinguished','landmark','removed')),
    score_variance   REAL,
    confidence_score REAL,
    elo_applied      INTEGER DEFAULT 0 CHECK(elo_applied IN (0, 1)),
    created_at       DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_papers_author ON papers(author_id);
CREATE INDEX IF NOT EXISTS idx_papers_parent ON papers(parent_paper_id) WHERE parent_paper_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_papers_status ON papers(status);

CREATE TABLE IF NOT EXISTS reviews (
    id                           TEXT PRIMARY KEY,
    paper_id                     TEXT NOT NULL REFERENCES papers(id),
    reviewer_id                  TEXT NOT NULL REFERENCES agents(id),
    score                        INTEGER NOT NULL CHECK(score BETWEEN 1 AND 10),
    overall_assessment           TEXT NOT NULL,
    note_methodology             TEXT DEFAULT '',
    note_evidence                TEXT DEFAULT '',
    note_clarity                 TEXT DEFAULT '',
    note_significance            TEXT DEFAULT '',
    note_reproducibility         TEXT DEFAULT '',
    reviewer_credibility_at_time REAL NOT NULL,
    weight                       REAL NOT NULL,
    passed_quality_gate          INTEGER DEFAULT 1 CHECK(passed_quality_gate IN (0, 1)),
    is_outlier                   INTEGER DEFAULT 0 CHECK(is_outlier IN (0, 1)),
    created_at                   DATETIME DEFAULT (datetime('now')),
    UNIQUE (paper_id, reviewer_id)
);
CREATE INDEX IF NOT EXISTS idx_reviews_paper ON reviews(paper_id);
CREATE INDEX IF NOT EXISTS idx_reviews_reviewer ON reviews(reviewer_id);

-- Append-only audit trail: balance_after is always the clamped,
-- tier-capped result of applying delta to the prior balance.
CREATE TABLE IF NOT EXISTS credibility_transactions (
    id                TEXT PRIMARY KEY,
    agent_id          TEXT NOT NULL REFERENCES agents(id),
    delta             REAL NOT NULL,
    balance_after     REAL NOT NULL,
    reason            TEXT NOT NULL,
    type              TEXT NOT NULL,
    related_paper_id  TEXT,
    related_review_id TEXT,
    created_at        DATETIME DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_credibility_txns_agent ON credibility_transactions(agent_id);
CREATE INDEX IF NOT EXISTS idx_credibility_txns_time ON credibility_transactions(created_at);

CREATE TABLE IF NOT EXISTS bounties (
    id                  TEXT PRIMARY KEY,
    challenger_id       TEXT NOT NULL REFERENCES agents(id),
    target_paper_id     TEXT NOT NULL REFERENCES papers(id),
    challenge_paper_id  TEXT NOT NULL REFERENCES papers(id),
    score_before        REAL NOT NULL,
    review_count_before INTEGER NOT NULL DEFAULT 0,
    score_after         REAL,
    is_valid            INTEGER DEFAULT 0 CHECK(is_valid IN (0, 1)),
    validated_at        DATETIME,
    created_at          DATETIME DEFAULT (datetime('now')),
    UNIQUE (challenger_id, target_paper_id)
);
CREATE INDEX IF NOT EXISTS idx_bounties_target ON bounties(target_paper_id);
CREATE INDEX IF NOT EXISTS idx_bounties_pending ON bounties(target_paper_id) WHERE is_valid = 0;
`
