package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/types"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/utils"
)

var (
	nameCallData     = common.Hex2Bytes("06fdde03") // name()
	symbolCallData   = common.Hex2Bytes("95d89b41") // symbol()
	decimalsCallData = common.Hex2Bytes("313ce567") // decimals()

	stringAbiType, _ = abi.NewType("string", "", nil)
	uint8AbiType, _  = abi.NewType("uint8", "", nil)
)

// TokenMetadataUpdater periodically resolves name, symbol and decimals of
// discovered token contracts and replays flagged tokens whose holder
// balances need a full recompute.
type TokenMetadataUpdater struct {
	ctx        *IndexerCtx
	logger     logrus.FieldLogger
	config     *types.Config
	aggregator *Aggregator
}

func NewTokenMetadataUpdater(ctx *IndexerCtx, config *types.Config, aggregator *Aggregator) *TokenMetadataUpdater {
	return &TokenMetadataUpdater{
		ctx:        ctx,
		logger:     ctx.logger.WithField("module", "token_metadata"),
		config:     config,
		aggregator: aggregator,
	}
}

func (tm *TokenMetadataUpdater) Start(ctx context.Context) {
	go tm.runUpdaterLoop(ctx)
}

func (tm *TokenMetadataUpdater) runUpdaterLoop(ctx context.Context) {
	defer utils.HandleSubroutinePanic("execution.token_metadata", func() { tm.runUpdaterLoop(ctx) })

	ticker := time.NewTicker(tm.config.Indexer.TokenMetadataInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		tm.processPendingMetadata(ctx)
		tm.processRecomputeFlags()
	}
}

func (tm *TokenMetadataUpdater) processPendingMetadata(ctx context.Context) {
	tokens, err := db.GetPendingMetadataTokens(20)
	if err != nil {
		utils.LogError(err, "could not load pending metadata tokens", 0)
		return
	}

	for _, token := range tokens {
		if ctx.Err() != nil {
			return
		}
		if err := tm.fetchTokenMetadata(ctx, token); err != nil {
			tm.logger.WithField("token", fmt.Sprintf("0x%x", token.Address)).WithError(err).Warn("could not fetch token metadata")
		}
	}
}

// fetchTokenMetadata calls the optional ERC20 metadata getters on the token
// contract. Contracts without any metadata getters (common for ERC1155) are
// marked failed so they are not retried forever.
func (tm *TokenMetadataUpdater) fetchTokenMetadata(ctx context.Context, token *dbtypes.Token) error {
	contractAddress := common.BytesToAddress(token.Address)

	name, nameErr := tm.callStringGetter(ctx, contractAddress, nameCallData)
	symbol, symbolErr := tm.callStringGetter(ctx, contractAddress, symbolCallData)

	if nameErr == nil && name != "" {
		token.Name = &name
	}
	if symbolErr == nil && symbol != "" {
		token.Symbol = &symbol
	}

	if token.TokenType == dbtypes.TokenTypeERC20 {
		if decimals, err := tm.callUint8Getter(ctx, contractAddress, decimalsCallData); err == nil {
			token.Decimals = &decimals
		}
	}

	if token.Name == nil && token.Symbol == nil {
		token.MetadataStatus = dbtypes.TokenMetadataFailed
	} else {
		token.MetadataStatus = dbtypes.TokenMetadataFetched
	}

	return db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return db.SetTokenMetadata(token, tx)
	})
}

func (tm *TokenMetadataUpdater) callStringGetter(ctx context.Context, contractAddress common.Address, callData []byte) (string, error) {
	result, err := tm.callContract(ctx, contractAddress, callData)
	if err != nil {
		return "", err
	}

	unpacked, err := abi.Arguments{{Type: stringAbiType}}.Unpack(result)
	if err != nil {
		// some legacy contracts return bytes32 instead of string
		if len(result) == 32 {
			return strings.TrimRight(string(result), "\x00"), nil
		}
		return "", err
	}
	value, ok := unpacked[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected return type")
	}
	return strings.ToValidUTF8(value, ""), nil
}

func (tm *TokenMetadataUpdater) callUint8Getter(ctx context.Context, contractAddress common.Address, callData []byte) (uint8, error) {
	result, err := tm.callContract(ctx, contractAddress, callData)
	if err != nil {
		return 0, err
	}

	unpacked, err := abi.Arguments{{Type: uint8AbiType}}.Unpack(result)
	if err != nil {
		return 0, err
	}
	value, ok := unpacked[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected return type")
	}
	return value, nil
}

func (tm *TokenMetadataUpdater) callContract(ctx context.Context, contractAddress common.Address, callData []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, tm.config.ExecutionApi.CallTimeout)
	defer cancel()

	result, err := tm.ctx.client.CallContract(callCtx, ethereum.CallMsg{
		To:   &contractAddress,
		Data: callData,
	})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty call result")
	}
	return result, nil
}

func (tm *TokenMetadataUpdater) processRecomputeFlags() {
	tokens, err := db.GetRecomputePendingTokens(5)
	if err != nil {
		utils.LogError(err, "could not load recompute pending tokens", 0)
		return
	}

	for _, token := range tokens {
		tm.logger.WithField("token", fmt.Sprintf("0x%x", token.Address)).Info("replaying token transfers to rebuild holder balances")
		if err := tm.aggregator.RecomputeTokenHolders(token.Address); err != nil {
			utils.LogError(err, "could not recompute token holders", 0)
		}
	}
}
