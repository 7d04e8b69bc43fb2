package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/services"
)

// ApiDailyStatsV1 godoc
// @Summary Get daily network statistics
// @Tags Stats
// @Description Returns per-day rollups for a date range. Defaults to the last 30 days.
// @Produce json
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {object} ApiResponse{data=[]APIDailyStatsV1} "Success"
// @Failure 400 {object} ApiResponse "Failure"
// @Router /api/v1/stats/daily [get]
func ApiDailyStatsV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	toDay := time.Now().UTC().Format("2006-01-02")
	fromDay := time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")

	if fromParam := r.URL.Query().Get("from"); fromParam != "" {
		if _, err := time.Parse("2006-01-02", fromParam); err != nil {
			sendBadRequestResponse(w, r.URL.String(), "invalid from day provided")
			return
		}
		fromDay = fromParam
	}
	if toParam := r.URL.Query().Get("to"); toParam != "" {
		if _, err := time.Parse("2006-01-02", toParam); err != nil {
			sendBadRequestResponse(w, r.URL.String(), "invalid to day provided")
			return
		}
		toDay = toParam
	}

	stats, err := services.GlobalChainService.GetDailyStats(fromDay, toDay)
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load daily stats")
		return
	}

	data := make([]*APIDailyStatsV1, len(stats))
	for i, dayStats := range stats {
		data[i] = &APIDailyStatsV1{
			Day:              dayStats.Day,
			BlockCount:       dayStats.BlockCount,
			TransactionCount: dayStats.TransactionCount,
			TransferCount:    dayStats.TransferCount,
			GasUsed:          dayStats.GasUsed,
			TotalFees:        bigBytesToString(dayStats.TotalFees),
		}
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), data)
}

// ApiNetworkStatsV1 godoc
// @Summary Get global network statistics
// @Tags Stats
// @Produce json
// @Success 200 {object} ApiResponse{data=APINetworkStatsV1} "Success"
// @Router /api/v1/stats/network [get]
func ApiNetworkStatsV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	stats, err := services.GlobalChainService.GetNetworkStats()
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load network stats")
		return
	}
	if stats == nil {
		sendNotFoundResponse(w, r.URL.String(), "no network stats available yet")
		return
	}

	data := &APINetworkStatsV1{
		LatestBlock:       stats.LatestBlock,
		LatestBlockHash:   bytesToHex(stats.LatestBlockHash),
		TotalBlocks:       stats.TotalBlocks,
		TotalTransactions: stats.TotalTransactions,
		TotalTransfers:    stats.TotalTransfers,
		TotalAddresses:    stats.TotalAddresses,
		UpdatedAt:         stats.UpdatedAt,
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), data)
}

// ApiStatusV1 godoc
// @Summary Get indexer status
// @Tags Stats
// @Description Returns per-stream checkpoints and their distance to the chain tip
// @Produce json
// @Success 200 {object} ApiResponse{data=services.StatusInfo} "Success"
// @Router /api/v1/status [get]
func ApiStatusV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !checkRateLimit(w, r) {
		return
	}

	status, err := services.GlobalChainService.GetStatus(r.Context())
	if err != nil {
		sendServerErrorResponse(w, r.URL.String(), "could not load indexer status")
		return
	}

	j := json.NewEncoder(w)
	sendOKResponse(j, r.URL.String(), status)
}
