package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- CHUNK TABLE (content units)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS content ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS container_id ON chunk TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS position ON chunk TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS created_at ON chunk TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chunk_container ON chunk FIELDS container_id;

    -- ==========================================================================
    -- TRANSFORM_JOB TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS transform_job SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS session_id ON transform_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS job_type ON transform_job TYPE string;
    DEFINE FIELD IF NOT EXISTS config ON transform_job TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS priority ON transform_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS source_chunk_ids ON transform_job TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS status ON transform_job TYPE string
        ASSERT $value IN ["pending", "processing", "completed", "failed", "cancelled"];
    DEFINE FIELD IF NOT EXISTS total_items ON transform_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS processed_items ON transform_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS failed_items ON transform_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS current_item_id ON transform_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS progress_percentage ON transform_job TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS error_message ON transform_job TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error_count ON transform_job TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS metadata ON transform_job TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON transform_job TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS started_at ON transform_job TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS completed_at ON transform_job TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS job_status ON transform_job FIELDS status;
    DEFINE INDEX IF NOT EXISTS job_type_idx ON transform_job FIELDS job_type;
    DEFINE INDEX IF NOT EXISTS job_session ON transform_job FIELDS session_id;

    -- ==========================================================================
    -- TRANSFORMATION_RECORD TABLE (per-item audit rows)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS transformation_record SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS job_id ON transformation_record TYPE string;
    DEFINE FIELD IF NOT EXISTS source_chunk_id ON transformation_record TYPE string;
    DEFINE FIELD IF NOT EXISTS result_chunk_id ON transformation_record TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS operation_type ON transformation_record TYPE string;
    DEFINE FIELD IF NOT EXISTS parameters ON transformation_record TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS tokens_used ON transformation_record TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS processing_time_ms ON transformation_record TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS sequence_number ON transformation_record TYPE int;
    DEFINE FIELD IF NOT EXISTS status ON transformation_record TYPE string
        ASSERT $value IN ["completed", "failed"];
    DEFINE FIELD IF NOT EXISTS error ON transformation_record TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS completed_at ON transformation_record TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS record_job ON transformation_record FIELDS job_id;
    DEFINE INDEX IF NOT EXISTS record_source ON transformation_record FIELDS source_chunk_id;
    DEFINE INDEX IF NOT EXISTS record_result ON transformation_record FIELDS result_chunk_id;

    -- ==========================================================================
    -- LINEAGE_NODE TABLE (provenance forest)
    -- ==========================================================================
    -- Flat table keyed by chunk_id; parent_chunk_id is a plain foreign key.
    -- The unique index on chunk_id backs the atomic get-or-create: two
    -- concurrent writers racing on the same chunk collapse into one insert
    -- plus merge-on-conflict.
    DEFINE TABLE IF NOT EXISTS lineage_node SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS chunk_id ON lineage_node TYPE string;
    DEFINE FIELD IF NOT EXISTS root_chunk_id ON lineage_node TYPE string;
    DEFINE FIELD IF NOT EXISTS parent_chunk_id ON lineage_node TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS generation ON lineage_node TYPE int ASSERT $value >= 0;
    DEFINE FIELD IF NOT EXISTS transformation_path ON lineage_node TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS depth ON lineage_node TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS session_ids ON lineage_node TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS job_ids ON lineage_node TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS total_transformations ON lineage_node TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS total_tokens_used ON lineage_node TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS created_at ON lineage_node TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON lineage_node TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS lineage_chunk ON lineage_node FIELDS chunk_id UNIQUE;
    DEFINE INDEX IF NOT EXISTS lineage_root ON lineage_node FIELDS root_chunk_id;
    DEFINE INDEX IF NOT EXISTS lineage_parent ON lineage_node FIELDS parent_chunk_id;
`
