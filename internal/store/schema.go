package store

// SchemaSQL defines the Rule Store: the persistent tables every rbdb
// database is backed by (spec.md §4.8). `_entity` gives predicates and
// rules a shared identity space with an externally-visible v7 UUID;
// `_predicate` is the catalog rescue and the DDL interceptor consult;
// `_rule` holds every asserted fact/rule as an encoded formula, with
// generated columns projecting exactly the fields compiled SQL needs to
// look a fact or rule up without re-parsing its formula.
const SchemaSQL = `
-- ========================================================
-- 1. ENTITY IDENTITY
-- ========================================================
CREATE TABLE IF NOT EXISTS _entity (
    id          INTEGER PRIMARY KEY,
    external_id BLOB NOT NULL DEFAULT (new_entity_id())
);

-- ========================================================
-- 2. PREDICATE CATALOG
-- ========================================================
-- column_names holds a JSON list of the predicate's declared column
-- names, in position order, consulted by the Materializer when
-- rebuilding a dropped view.
CREATE TABLE IF NOT EXISTS _predicate (
    id            INTEGER PRIMARY KEY REFERENCES _entity(id),
    name          TEXT UNIQUE NOT NULL,
    column_names  BLOB NOT NULL
);

-- ========================================================
-- 3. RULES AND FACTS
-- ========================================================
-- negative_literal_count: NULL for facts, the rule's body length
-- otherwise (see DESIGN.md's Open Question decision #4 for why this is
-- computed via formula_body_len rather than the literal
-- array-length(formula)-2 expression).
CREATE TABLE IF NOT EXISTS _rule (
    id                     INTEGER PRIMARY KEY REFERENCES _entity(id),
    formula                BLOB UNIQUE NOT NULL,
    output_type            TEXT GENERATED ALWAYS AS (json_extract(formula, '$[0]')) VIRTUAL,
    arg1_constant          TEXT GENERATED ALWAYS AS (formula_arg_constant(formula, 0)) VIRTUAL,
    arg2_constant          TEXT GENERATED ALWAYS AS (formula_arg_constant(formula, 1)) VIRTUAL,
    negative_literal_count INTEGER GENERATED ALWAYS AS (NULLIF(formula_body_len(formula), 0)) VIRTUAL
);

-- ========================================================
-- 4. CONFIG
-- ========================================================
CREATE TABLE IF NOT EXISTS _config (
    key   TEXT PRIMARY KEY,
    value TEXT
);

-- ========================================================
-- 5. INDEXES
-- ========================================================
CREATE INDEX IF NOT EXISTS idx_rule_lookup
    ON _rule(output_type COLLATE NOCASE, negative_literal_count, arg1_constant, arg2_constant);
CREATE INDEX IF NOT EXISTS idx_rule_lookup_flip
    ON _rule(output_type COLLATE NOCASE, negative_literal_count, arg2_constant, arg1_constant);

-- ========================================================
-- 6. RULE-CHANGE NOTIFICATION
-- ========================================================
-- Fires when a non-fact rule is asserted, dropping the head predicate's
-- session view via sql_exec so the next read rebuilds it with the new
-- rule folded in (spec.md §4.6).
CREATE TRIGGER IF NOT EXISTS _rule_ai_drop_view
AFTER INSERT ON _rule
WHEN new.negative_literal_count > 0
BEGIN
    SELECT sql_exec('DROP VIEW IF EXISTS "' || substr(new.output_type, 2) || '"; ' ||
                     'DROP TRIGGER IF EXISTS "' || substr(new.output_type, 2) || '__t";');
END;
`
