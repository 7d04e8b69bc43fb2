package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/services"
)

type APITokenListResponseV1 struct {
	Tokens []*APITokenV1 `json:"tokens"`
	Count  int           `json:"count"`
}

type APITokenTransfersResponseV1 struct {
	Transfers  []*APITokenTransferV1 `json:"transfers"`
	TotalCount uint64                `json:"total_count"`
}

type APITokenHoldersResponseV1 struct {
	Holders    []*APITokenHolderV1 `json:"holders"`
	TotalCount uint64              `json:"total_count"`
}

// ApiTokensV1 godoc
// @Summary Get known tokens
// @Tags Token
// @Description Returns discovered token contracts ordered by transfer count
// @Produce json
// @Param limit query int false "Number of tokens to return (default 25, max 100)"
// @Param offset query int false "Offset for pagination"
// @Success 200 {object} ApiResponse{data=APITokenListResponseV1} "Success"
// @Router /api/v1/tokens [get]
func ApiTokensV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	offset, limit := parsePagination(r, 25, 100)

	tokens, err := services.GlobalChainService.GetTokens(offset, limit)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load tokens")
		return
	}

	data := &APITokenListResponseV1{
		Tokens: make([]*APITokenV1, len(tokens)),
		Count:  len(tokens),
	}
	for i, token := range tokens {
		data.Tokens[i] = buildApiToken(token)
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), data)
}

// ApiTokenV1 godoc
// @Summary Get token by address
// @Tags Token
// @Produce json
// @Param address path string true "Token contract address"
// @Success 200 {object} ApiResponse{data=APITokenV1} "Success"
// @Failure 400 {object} ApiResponse "Failure"
// @Failure 404 {object} ApiResponse "Not found"
// @Router /api/v1/token/{address} [get]
func ApiTokenV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	vars := mux.Vars(r)
	addressBytes, ok := parseHexBytes(vars["address"], 20)
	if !ok {
		sendBadRequestResponse(w, r.URL.String(), "invalid token address provided")
		return
	}

	token, err := services.GlobalChainService.GetToken(addressBytes)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load token")
		return
	}
	if token == nil {
		sendNotFoundResponse(w, r.URL.String(), fmt.Sprintf("token %v not found", vars["address"]))
		return
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), buildApiToken(token))
}

// ApiTokenTransfersV1 godoc
// @Summary Get transfers of a token
// @Tags Token
// @Produce json
// @Param address path string true "Token contract address"
// @Param limit query int false "Number of transfers to return (default 25, max 100)"
// @Param offset query int false "Offset for pagination"
// @Success 200 {object} ApiResponse{data=APITokenTransfersResponseV1} "Success"
// @Failure 400 {object} ApiResponse "Failure"
// @Router /api/v1/token/{address}/transfers [get]
func ApiTokenTransfersV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	vars := mux.Vars(r)
	addressBytes, ok := parseHexBytes(vars["address"], 20)
	if !ok {
		sendBadRequestResponse(w, r.URL.String(), "invalid token address provided")
		return
	}

	offset, limit := parsePagination(r, 25, 100)

	transfers, totalCount, err := services.GlobalChainService.GetTokenTransfersByToken(addressBytes, offset, limit)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load token transfers")
		return
	}

	data := &APITokenTransfersResponseV1{
		Transfers:  make([]*APITokenTransferV1, len(transfers)),
		TotalCount: totalCount,
	}
	for i, transfer := range transfers {
		data.Transfers[i] = buildApiTokenTransfer(transfer)
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), data)
}

// ApiTokenHoldersV1 godoc
// @Summary Get holders of a token
// @Tags Token
// @Description Returns token holders ordered by balance, largest first
// @Produce json
// @Param address path string true "Token contract address"
// @Param limit query int false "Number of holders to return (default 25, max 100)"
// @Param offset query int false "Offset for pagination"
// @Success 200 {object} ApiResponse{data=APITokenHoldersResponseV1} "Success"
// @Failure 400 {object} ApiResponse "Failure"
// @Router /api/v1/token/{address}/holders [get]
func ApiTokenHoldersV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	vars := mux.Vars(r)
	addressBytes, ok := parseHexBytes(vars["address"], 20)
	if !ok {
		sendBadRequestResponse(w, r.URL.String(), "invalid token address provided")
		return
	}

	offset, limit := parsePagination(r, 25, 100)

	holders, totalCount, err := services.GlobalChainService.GetTokenHolders(addressBytes, offset, limit)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load token holders")
		return
	}

	data := &APITokenHoldersResponseV1{
		Holders:    make([]*APITokenHolderV1, len(holders)),
		TotalCount: totalCount,
	}
	for i, holder := range holders {
		data.Holders[i] = &APITokenHolderV1{
			HolderAddress:    bytesToHex(holder.HolderAddress),
			TokenId:          tokenIdString(holder.TokenId),
			Balance:          bigBytesToString(holder.Balance),
			LastUpdatedBlock: holder.LastUpdatedBlock,
		}
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), data)
}
