package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

const tokenColumns = "address, token_type, name, symbol, decimals, holder_count, transfer_count, metadata_status, discovered_block, needs_recompute"

func GetToken(address []byte) (*dbtypes.Token, error) {
	token := &dbtypes.Token{}
	err := ReaderDb.Get(token,
		"SELECT "+tokenColumns+" FROM tokens WHERE address = $1",
		address,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return token, nil
}

// UpsertToken inserts a newly discovered token contract. An existing row is
// left untouched except for the counter deltas.
func UpsertToken(token *dbtypes.Token, transferCountDelta int64, tx *sqlx.Tx) error {
	_, err := tx.Exec(EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO tokens (` + tokenColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (address) DO UPDATE SET
				token_type = excluded.token_type,
				transfer_count = tokens.transfer_count + $11`,
		dbtypes.DBEngineSqlite: `
			INSERT INTO tokens (` + tokenColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (address) DO UPDATE SET
				token_type = excluded.token_type,
				transfer_count = tokens.transfer_count + $11`,
	}), token.Address, token.TokenType, token.Name, token.Symbol, token.Decimals,
		token.HolderCount, token.TransferCount, token.MetadataStatus,
		token.DiscoveredBlock, token.NeedsRecompute, transferCountDelta)
	if err != nil {
		return err
	}
	return nil
}

func SetTokenMetadata(token *dbtypes.Token, tx *sqlx.Tx) error {
	_, err := tx.Exec(`
		UPDATE tokens SET
			token_type = $2,
			name = $3,
			symbol = $4,
			decimals = $5,
			metadata_status = $6
		WHERE address = $1`,
		token.Address, token.TokenType, token.Name, token.Symbol, token.Decimals, token.MetadataStatus)
	return err
}

func SetTokenNeedsRecompute(address []byte, needsRecompute bool, tx *sqlx.Tx) error {
	_, err := tx.Exec(`UPDATE tokens SET needs_recompute = $2 WHERE address = $1`, address, needsRecompute)
	return err
}

func UpdateTokenHolderCount(address []byte, delta int64, tx *sqlx.Tx) error {
	_, err := tx.Exec(`UPDATE tokens SET holder_count = holder_count + $2 WHERE address = $1`, address, delta)
	return err
}

// GetPendingMetadataTokens returns tokens whose metadata has not been
// fetched yet.
func GetPendingMetadataTokens(limit uint32) ([]*dbtypes.Token, error) {
	tokens := []*dbtypes.Token{}
	err := ReaderDb.Select(&tokens,
		"SELECT "+tokenColumns+" FROM tokens WHERE metadata_status = $1 ORDER BY discovered_block ASC LIMIT $2",
		dbtypes.TokenMetadataPending, limit,
	)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func GetRecomputePendingTokens(limit uint32) ([]*dbtypes.Token, error) {
	tokens := []*dbtypes.Token{}
	err := ReaderDb.Select(&tokens,
		"SELECT "+tokenColumns+" FROM tokens WHERE needs_recompute = TRUE ORDER BY discovered_block ASC LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func GetTokens(offset uint64, limit uint32) ([]*dbtypes.Token, error) {
	tokens := []*dbtypes.Token{}

	var sql strings.Builder
	args := []interface{}{limit}
	fmt.Fprintf(&sql, "SELECT %s FROM tokens ORDER BY transfer_count DESC LIMIT $1", tokenColumns)
	if offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&sql, " OFFSET $%v", len(args))
	}

	err := ReaderDb.Select(&tokens, sql.String(), args...)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

const tokenHolderColumns = "token_address, holder_address, token_id, balance, last_updated_block"

// GetTokenHolderTx reads one holder row within a write transaction, so the
// read-modify-write of a balance stays atomic with the block commit.
func GetTokenHolderTx(tx *sqlx.Tx, tokenAddress []byte, holderAddress []byte, tokenId []byte) (*dbtypes.TokenHolder, error) {
	holder := &dbtypes.TokenHolder{}
	err := tx.Get(holder,
		"SELECT "+tokenHolderColumns+" FROM token_holders WHERE token_address = $1 AND holder_address = $2 AND token_id = $3",
		tokenAddress, holderAddress, tokenId,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return holder, nil
}

func SetTokenHolder(holder *dbtypes.TokenHolder, tx *sqlx.Tx) error {
	_, err := tx.Exec(EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO token_holders (` + tokenHolderColumns + `)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (token_address, holder_address, token_id) DO UPDATE SET
				balance = excluded.balance,
				last_updated_block = excluded.last_updated_block`,
		dbtypes.DBEngineSqlite: `
			INSERT OR REPLACE INTO token_holders (` + tokenHolderColumns + `)
			VALUES ($1, $2, $3, $4, $5)`,
	}), holder.TokenAddress, holder.HolderAddress, holder.TokenId, holder.Balance, holder.LastUpdatedBlock)
	if err != nil {
		return err
	}
	return nil
}

func DeleteTokenHolder(tokenAddress []byte, holderAddress []byte, tokenId []byte, tx *sqlx.Tx) error {
	_, err := tx.Exec(`DELETE FROM token_holders WHERE token_address = $1 AND holder_address = $2 AND token_id = $3`,
		tokenAddress, holderAddress, tokenId)
	return err
}

func DeleteTokenHolders(tokenAddress []byte, tx *sqlx.Tx) error {
	_, err := tx.Exec(`DELETE FROM token_holders WHERE token_address = $1`, tokenAddress)
	return err
}

// GetTokenHolders returns the holders of one token, balance-descending.
func GetTokenHolders(tokenAddress []byte, offset uint64, limit uint32) ([]*dbtypes.TokenHolder, uint64, error) {
	var totalCount uint64
	err := ReaderDb.Get(&totalCount,
		`SELECT COUNT(*) FROM token_holders WHERE token_address = $1`,
		tokenAddress,
	)
	if err != nil {
		return nil, 0, err
	}

	var sql strings.Builder
	args := []interface{}{tokenAddress, limit}
	fmt.Fprintf(&sql, "SELECT %s FROM token_holders WHERE token_address = $1 ORDER BY LENGTH(balance) DESC, balance DESC LIMIT $2", tokenHolderColumns)
	if offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&sql, " OFFSET $%v", len(args))
	}

	holders := []*dbtypes.TokenHolder{}
	err = ReaderDb.Select(&holders, sql.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	return holders, totalCount, nil
}

func GetTokenHolderCount(tokenAddress []byte) (uint64, error) {
	var count uint64
	err := ReaderDb.Get(&count, `SELECT COUNT(*) FROM token_holders WHERE token_address = $1`, tokenAddress)
	if err != nil {
		return 0, err
	}
	return count, nil
}
