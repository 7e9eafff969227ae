package api

import (
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// limitInventory rejects inventory scans beyond the limiter's budget and tells
// the client when the next token frees up.
func limitInventory(limiter *rate.Limiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := limiter.Reserve()
		if res.OK() {
			delay := res.Delay()
			if delay == 0 {
				next.ServeHTTP(w, r)
				return
			}
			res.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
		}
		writeError(w, http.StatusTooManyRequests, "Too many requests", "model inventory is rate limited, retry later")
	})
}
