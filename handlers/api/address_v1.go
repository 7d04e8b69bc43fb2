package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/services"
)

type APIAddressTransactionsResponseV1 struct {
	Transactions []*APITransactionV1 `json:"transactions"`
	TotalCount   uint64              `json:"total_count"`
}

type APIAddressTransfersResponseV1 struct {
	Transfers  []*APITokenTransferV1 `json:"transfers"`
	TotalCount uint64                `json:"total_count"`
}

// ApiAddressV1 godoc
// @Summary Get address summary
// @Tags Address
// @Description Returns the aggregated counters and balance of an address
// @Produce json
// @Param address path string true "Address"
// @Success 200 {object} ApiResponse{data=APIAddressV1} "Success"
// @Failure 400 {object} ApiResponse "Failure"
// @Failure 404 {object} ApiResponse "Not found"
// @Router /api/v1/address/{address} [get]
func ApiAddressV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	vars := mux.Vars(r)
	addressBytes, ok := parseHexBytes(vars["address"], 20)
	if !ok {
		sendBadRequestResponse(w, r.URL.String(), "invalid address provided")
		return
	}

	address, err := services.GlobalChainService.GetAddress(addressBytes)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load address")
		return
	}
	if address == nil {
		sendNotFoundResponse(w, r.URL.String(), fmt.Sprintf("address %v not found", vars["address"]))
		return
	}

	data := &APIAddressV1{
		Address:         bytesToHex(address.Address),
		Balance:         bigBytesToString(address.Balance),
		TxCount:         address.TxCount,
		SentTxCount:     address.SentTxCount,
		ReceivedTxCount: address.ReceivedTxCount,
		IsContract:      address.IsContract,
		FirstSeenBlock:  address.FirstSeenBlock,
		LastSeenBlock:   address.LastSeenBlock,
		FirstSeenTime:   address.FirstSeenTime,
		LastSeenTime:    address.LastSeenTime,
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), data)
}

// ApiAddressTransactionsV1 godoc
// @Summary Get transactions of an address
// @Tags Address
// @Description Returns all transactions an address sent or received, newest first
// @Produce json
// @Param address path string true "Address"
// @Param limit query int false "Number of transactions to return (default 25, max 100)"
// @Param offset query int false "Offset for pagination"
// @Success 200 {object} ApiResponse{data=APIAddressTransactionsResponseV1} "Success"
// @Failure 400 {object} ApiResponse "Failure"
// @Router /api/v1/address/{address}/transactions [get]
func ApiAddressTransactionsV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	vars := mux.Vars(r)
	addressBytes, ok := parseHexBytes(vars["address"], 20)
	if !ok {
		sendBadRequestResponse(w, r.URL.String(), "invalid address provided")
		return
	}

	offset, limit := parsePagination(r, 25, 100)

	transactions, totalCount, err := services.GlobalChainService.GetTransactionsByAddress(addressBytes, offset, limit)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load transactions")
		return
	}

	data := &APIAddressTransactionsResponseV1{
		Transactions: make([]*APITransactionV1, len(transactions)),
		TotalCount:   totalCount,
	}
	for i, transaction := range transactions {
		data.Transactions[i] = buildApiTransaction(transaction)
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), data)
}

// ApiAddressTransfersV1 godoc
// @Summary Get token transfers of an address
// @Tags Address
// @Produce json
// @Param address path string true "Address"
// @Param limit query int false "Number of transfers to return (default 25, max 100)"
// @Param offset query int false "Offset for pagination"
// @Success 200 {object} ApiResponse{data=APIAddressTransfersResponseV1} "Success"
// @Failure 400 {object} ApiResponse "Failure"
// @Router /api/v1/address/{address}/transfers [get]
func ApiAddressTransfersV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	vars := mux.Vars(r)
	addressBytes, ok := parseHexBytes(vars["address"], 20)
	if !ok {
		sendBadRequestResponse(w, r.URL.String(), "invalid address provided")
		return
	}

	offset, limit := parsePagination(r, 25, 100)

	transfers, totalCount, err := services.GlobalChainService.GetTokenTransfersByAddress(addressBytes, offset, limit)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load token transfers")
		return
	}

	data := &APIAddressTransfersResponseV1{
		Transfers:  make([]*APITokenTransferV1, len(transfers)),
		TotalCount: totalCount,
	}
	for i, transfer := range transfers {
		data.Transfers[i] = buildApiTokenTransfer(transfer)
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), data)
}
