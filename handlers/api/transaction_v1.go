package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/services"
)

type APITransactionDetailsResponseV1 struct {
	Transaction *APITransactionV1           `json:"transaction"`
	Logs        []*APITransactionLogV1      `json:"logs"`
	InternalTxs []*APIInternalTransactionV1 `json:"internal_transactions"`
	Transfers   []*APITokenTransferV1       `json:"token_transfers"`
}

// ApiTransactionV1 godoc
// @Summary Get transaction by hash
// @Tags Transaction
// @Description Returns transaction details with logs, internal transactions and decoded token transfers
// @Produce json
// @Param hash path string true "Transaction hash"
// @Success 200 {object} ApiResponse{data=APITransactionDetailsResponseV1} "Success"
// @Failure 400 {object} ApiResponse "Failure"
// @Failure 404 {object} ApiResponse "Not found"
// @Router /api/v1/transaction/{hash} [get]
func ApiTransactionV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	vars := mux.Vars(r)
	hash, ok := parseHexBytes(vars["hash"], 32)
	if !ok {
		sendBadRequestResponse(w, r.URL.String(), "invalid transaction hash provided")
		return
	}

	transaction, err := services.GlobalChainService.GetTransactionByHash(hash)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load transaction")
		return
	}
	if transaction == nil {
		sendNotFoundResponse(w, r.URL.String(), fmt.Sprintf("transaction %v not found", vars["hash"]))
		return
	}

	data := &APITransactionDetailsResponseV1{
		Transaction: buildApiTransaction(transaction),
		Logs:        []*APITransactionLogV1{},
		InternalTxs: []*APIInternalTransactionV1{},
		Transfers:   []*APITokenTransferV1{},
	}

	logs, err := services.GlobalChainService.GetTransactionLogs(hash)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load transaction logs")
		return
	}
	for _, log := range logs {
		apiLog := &APITransactionLogV1{
			LogIndex:  log.LogIndex,
			Address:   bytesToHex(log.Address),
			Topics:    []string{},
			Data:      bytesToHex(log.Data),
			EventName: log.EventName,
		}
		for _, topic := range [][]byte{log.Topic0, log.Topic1, log.Topic2, log.Topic3} {
			if topic == nil {
				break
			}
			apiLog.Topics = append(apiLog.Topics, bytesToHex(topic))
		}
		data.Logs = append(data.Logs, apiLog)
	}

	internalTxs, err := services.GlobalChainService.GetInternalTransactions(hash)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load internal transactions")
		return
	}
	for _, internalTx := range internalTxs {
		data.InternalTxs = append(data.InternalTxs, &APIInternalTransactionV1{
			TraceIndex: internalTx.TraceIndex,
			CallType:   internalTx.CallType,
			From:       bytesToHex(internalTx.FromAddress),
			To:         bytesToHex(internalTx.ToAddress),
			Value:      bigBytesToString(internalTx.Value),
			GasUsed:    internalTx.GasUsed,
			Error:      internalTx.ErrorMsg,
		})
	}

	transfers, err := services.GlobalChainService.GetTokenTransfersByTransaction(hash)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load token transfers")
		return
	}
	for _, transfer := range transfers {
		data.Transfers = append(data.Transfers, buildApiTokenTransfer(transfer))
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), data)
}
