package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"assetledger/internal/api/response"
)

// timeTokenWindow bounds how far a time token's timestamp may drift from the
// server clock before the token is rejected.
const timeTokenWindow = 5 * time.Minute

// APIKeyMiddleware protects mutating endpoints with a shared API key and an
// HMAC time token. The caller sends the key in X-API-Key and a token in
// X-Time-Token; the token is an HMAC of a unix timestamp keyed with the API
// key, which keeps a leaked request from being replayed indefinitely.
func APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expectedKey := os.Getenv("INTERNAL_API_KEY")
		if expectedKey == "" {
			response.RespondError(w, http.StatusInternalServerError, "authentication failure", "Authentication not loaded")
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			response.RespondError(w, http.StatusUnauthorized, "authentication failure", "Missing API key")
			return
		}
		if !hmac.Equal([]byte(apiKey), []byte(expectedKey)) {
			response.RespondError(w, http.StatusUnauthorized, "authentication failure", "Invalid API key")
			return
		}

		timeToken := r.Header.Get("X-Time-Token")
		if timeToken == "" {
			response.RespondError(w, http.StatusUnauthorized, "authentication failure", "Missing Time token")
			return
		}
		if !verifyTimeToken(expectedKey, timeToken) {
			response.RespondError(w, http.StatusUnauthorized, "authentication failure", "Time token is invalid or expired")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GenerateTimeToken builds a time token for the given API key, valid for the
// configured window around now.
func GenerateTimeToken(apiKey string) string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	return fmt.Sprintf("%s.%s", ts, signTimestamp(apiKey, ts))
}

func verifyTimeToken(apiKey, token string) bool {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return false
	}

	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return false
	}

	drift := time.Since(time.Unix(ts, 0))
	if drift < -timeTokenWindow || drift > timeTokenWindow {
		return false
	}

	expected := signTimestamp(apiKey, parts[0])
	return hmac.Equal([]byte(expected), []byte(parts[1]))
}

func signTimestamp(apiKey, ts string) string {
	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(ts))
	return hex.EncodeToString(mac.Sum(nil))
}
