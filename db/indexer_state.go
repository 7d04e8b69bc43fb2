package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

// GetIndexerCheckpoint returns the checkpoint row for a stream, or nil if the
// stream has not committed any block yet.
func GetIndexerCheckpoint(stream string) (*dbtypes.IndexerCheckpoint, error) {
	checkpoint := &dbtypes.IndexerCheckpoint{}
	err := ReaderDb.Get(checkpoint, `
		SELECT stream, last_block_number, last_block_hash, updated_at
		FROM indexer_checkpoints
		WHERE stream = $1
	`, stream)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return checkpoint, nil
}

// GetIndexerCheckpoints returns all checkpoint rows.
func GetIndexerCheckpoints() ([]*dbtypes.IndexerCheckpoint, error) {
	return getIndexerCheckpoints(ReaderDb)
}

func GetIndexerCheckpointsTx(tx *sqlx.Tx) ([]*dbtypes.IndexerCheckpoint, error) {
	return getIndexerCheckpoints(tx)
}

func getIndexerCheckpoints(q sqlx.Queryer) ([]*dbtypes.IndexerCheckpoint, error) {
	checkpoints := []*dbtypes.IndexerCheckpoint{}
	err := sqlx.Select(q, &checkpoints, `
		SELECT stream, last_block_number, last_block_hash, updated_at
		FROM indexer_checkpoints
		ORDER BY stream ASC
	`)
	if err != nil {
		return nil, err
	}
	return checkpoints, nil
}

// SetIndexerCheckpoint upserts a stream checkpoint. Must be called within the
// same transaction that commits the referenced block's write-set.
func SetIndexerCheckpoint(checkpoint *dbtypes.IndexerCheckpoint, tx *sqlx.Tx) error {
	if checkpoint.UpdatedAt == 0 {
		checkpoint.UpdatedAt = uint64(time.Now().Unix())
	}

	_, err := tx.Exec(EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO indexer_checkpoints (stream, last_block_number, last_block_hash, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (stream) DO UPDATE SET
				last_block_number = excluded.last_block_number,
				last_block_hash = excluded.last_block_hash,
				updated_at = excluded.updated_at`,
		dbtypes.DBEngineSqlite: `
			INSERT OR REPLACE INTO indexer_checkpoints (stream, last_block_number, last_block_hash, updated_at)
			VALUES ($1, $2, $3, $4)`,
	}), checkpoint.Stream, checkpoint.LastBlockNumber, checkpoint.LastBlockHash, checkpoint.UpdatedAt)
	if err != nil {
		return err
	}
	return nil
}

// DeleteIndexerCheckpoint removes a stream checkpoint, forcing a re-index
// from the configured start block.
func DeleteIndexerCheckpoint(stream string, tx *sqlx.Tx) error {
	_, err := tx.Exec(`DELETE FROM indexer_checkpoints WHERE stream = $1`, stream)
	return err
}
