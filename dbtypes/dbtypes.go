package dbtypes

type DBEngineType int

const (
	DBEngineAny    DBEngineType = 0
	DBEnginePgsql  DBEngineType = 1
	DBEngineSqlite DBEngineType = 2
)

// ExplorerState is a generic key/value row used for small pieces of
// persistent state (pinned chain id, schema markers).
type ExplorerState struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// IndexerCheckpoint is the resumption point of one ingestion stream.
// A stream only advances its checkpoint after the full write-set of the
// referenced block has been committed.
type IndexerCheckpoint struct {
	Stream          string `db:"stream"`
	LastBlockNumber uint64 `db:"last_block_number"`
	LastBlockHash   []byte `db:"last_block_hash"`
	UpdatedAt       uint64 `db:"updated_at"`
}
