package api

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/services"
)

type ApiResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

func sendBadRequestResponse(w http.ResponseWriter, route, message string) {
	sendErrorWithCodeResponse(w, route, message, http.StatusBadRequest)
}

func sendNotFoundResponse(w http.ResponseWriter, route, message string) {
	sendErrorWithCodeResponse(w, route, message, http.StatusNotFound)
}

func sendServerErrorResponse(w http.ResponseWriter, route, message string) {
	sendErrorWithCodeResponse(w, route, message, http.StatusInternalServerError)
}

func sendErrorWithCodeResponse(w http.ResponseWriter, route, message string, errorcode int) {
	w.WriteHeader(errorcode)
	j := json.NewEncoder(w)
	response := &ApiResponse{}
	response.Status = "ERROR: " + message
	err := j.Encode(response)

	if err != nil {
		logrus.Errorf("error serializing json error for API %v route: %v", route, err)
	}
}

func sendOKResponse(j *json.Encoder, route string, data interface{}) {
	response := &ApiResponse{}
	response.Status = "OK"
	response.Data = data

	err := j.Encode(response)
	if err != nil {
		logrus.Errorf("error serializing json data for API %v route: %v", route, err)
	}
}

// checkRateLimit applies the global call rate limiter. Returns false if the
// request was rejected and the response already written.
func checkRateLimit(w http.ResponseWriter, r *http.Request) bool {
	if services.GlobalCallRateLimiter == nil {
		return true
	}
	if err := services.GlobalCallRateLimiter.CheckCallLimit(r, 1); err != nil {
		sendErrorWithCodeResponse(w, r.URL.String(), "rate limit exceeded", http.StatusTooManyRequests)
		return false
	}
	return true
}

// parseHexBytes parses a 0x-prefixed hex parameter, enforcing the expected
// byte length (0 to skip the length check).
func parseHexBytes(param string, expectedLen int) ([]byte, bool) {
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(param), "0x"))
	if err != nil {
		return nil, false
	}
	if expectedLen > 0 && len(decoded) != expectedLen {
		return nil, false
	}
	return decoded, true
}

func parsePagination(r *http.Request, defaultLimit uint32, maxLimit uint32) (offset uint64, limit uint32) {
	limit = defaultLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.ParseUint(limitParam, 10, 32); err == nil && parsed > 0 {
			limit = uint32(parsed)
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offsetParam := r.URL.Query().Get("offset"); offsetParam != "" {
		if parsed, err := strconv.ParseUint(offsetParam, 10, 64); err == nil {
			offset = parsed
		}
	}
	return
}

func bytesToHex(value []byte) string {
	if value == nil {
		return ""
	}
	return "0x" + hex.EncodeToString(value)
}

// bigBytesToString renders a big-endian big integer as a decimal string,
// since token and wei amounts exceed json-safe numbers.
func bigBytesToString(value []byte) string {
	if len(value) == 0 {
		return "0"
	}
	return new(big.Int).SetBytes(value).String()
}
