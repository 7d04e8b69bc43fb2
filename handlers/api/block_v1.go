package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/services"
)

type APIBlockListResponseV1 struct {
	Blocks []*APIBlockV1 `json:"blocks"`
	Count  int           `json:"count"`
}

// ApiBlockV1 godoc
// @Summary Get block by number or hash
// @Tags Block
// @Description Returns block details for a block number, the string latest or a 0x-prefixed block hash
// @Produce json
// @Param blockOrHash path string true "Block number, the string latest or a block hash"
// @Success 200 {object} ApiResponse{data=APIBlockV1} "Success"
// @Failure 400 {object} ApiResponse "Failure"
// @Failure 404 {object} ApiResponse "Not found"
// @Router /api/v1/block/{blockOrHash} [get]
func ApiBlockV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	vars := mux.Vars(r)
	block, ok := lookupBlock(w, r, vars["blockOrHash"])
	if !ok {
		return
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), buildApiBlock(block))
}

// ApiBlockTransactionsV1 godoc
// @Summary Get transactions of a block
// @Tags Block
// @Produce json
// @Param blockOrHash path string true "Block number, the string latest or a block hash"
// @Success 200 {object} ApiResponse{data=[]APITransactionV1} "Success"
// @Failure 400 {object} ApiResponse "Failure"
// @Router /api/v1/block/{blockOrHash}/transactions [get]
func ApiBlockTransactionsV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	vars := mux.Vars(r)
	block, ok := lookupBlock(w, r, vars["blockOrHash"])
	if !ok {
		return
	}

	transactions, err := services.GlobalChainService.GetTransactionsByBlockNumber(block.Number)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load transactions")
		return
	}

	data := make([]*APITransactionV1, len(transactions))
	for i, transaction := range transactions {
		data[i] = buildApiTransaction(transaction)
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), data)
}

// ApiBlocksV1 godoc
// @Summary Get recent blocks
// @Tags Block
// @Produce json
// @Param limit query int false "Number of blocks to return (default 25, max 100)"
// @Param offset query int false "Offset for pagination"
// @Param miner query string false "Filter by miner address"
// @Success 200 {object} ApiResponse{data=APIBlockListResponseV1} "Success"
// @Router /api/v1/blocks [get]
func ApiBlocksV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	offset, limit := parsePagination(r, 25, 100)

	filter := &dbtypes.BlockFilter{}
	if minerParam := r.URL.Query().Get("miner"); minerParam != "" {
		miner, ok := parseHexBytes(minerParam, 20)
		if !ok {
			sendBadRequestResponse(w, r.URL.String(), "invalid miner address provided")
			return
		}
		filter.Miner = miner
	}
	if minParam := r.URL.Query().Get("min_number"); minParam != "" {
		if minNumber, err := strconv.ParseUint(minParam, 10, 64); err == nil {
			filter.MinNumber = &minNumber
		}
	}
	if maxParam := r.URL.Query().Get("max_number"); maxParam != "" {
		if maxNumber, err := strconv.ParseUint(maxParam, 10, 64); err == nil {
			filter.MaxNumber = &maxNumber
		}
	}

	blocks, err := services.GlobalChainService.GetBlocks(offset, limit, filter)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load blocks")
		return
	}

	data := &APIBlockListResponseV1{
		Blocks: make([]*APIBlockV1, len(blocks)),
		Count:  len(blocks),
	}
	for i, block := range blocks {
		data.Blocks[i] = buildApiBlock(block)
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), data)
}

func lookupBlock(w http.ResponseWriter, r *http.Request, param string) (*dbtypes.Block, bool) {
	var block *dbtypes.Block
	var err error

	switch {
	case param == "latest":
		stats, statsErr := services.GlobalChainService.GetNetworkStats()
		if statsErr != nil || stats == nil {
			sendServerErrorResponse(w, r.URL.String(), "could not load latest block")
			return nil, false
		}
		block, err = services.GlobalChainService.GetBlockByNumber(stats.LatestBlock)
	case strings.HasPrefix(param, "0x"):
		hash, ok := parseHexBytes(param, 32)
		if !ok {
			sendBadRequestResponse(w, r.URL.String(), "invalid block hash provided")
			return nil, false
		}
		block, err = services.GlobalChainService.GetBlockByHash(hash)
	default:
		number, parseErr := strconv.ParseUint(param, 10, 64)
		if parseErr != nil {
			sendBadRequestResponse(w, r.URL.String(), "invalid block number provided")
			return nil, false
		}
		block, err = services.GlobalChainService.GetBlockByNumber(number)
	}

	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load block")
		return nil, false
	}
	if block == nil {
		sendNotFoundResponse(w, r.URL.String(), fmt.Sprintf("block %v not found", param))
		return nil, false
	}
	return block, true
}
