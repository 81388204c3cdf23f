package llm

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/kapu/cashier-dialog-gen/internal/constants"
)

var (
	minutesSecondsPattern = regexp.MustCompile(`(?i)try again in (\d+)m([\d.]+)s`)
	secondsPattern        = regexp.MustCompile(`(?i)try again in ([\d.]+)s`)
	dailyQuotaPattern     = regexp.MustCompile(`(?i)tokens per day|TPD`)
)

// RetryAfter reads the wait hint of a 429 body.
//
// "try again in 1m30.2s" waits minutes*60 + ceil(seconds); "try again in 4.1s"
// waits ceil(seconds) plus a small pad; anything else waits the default. The
// result is never below the configured floor.
func RetryAfter(body string) time.Duration {
	wait := constants.RateLimitConfig.DefaultWait

	if m := minutesSecondsPattern.FindStringSubmatch(body); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.ParseFloat(m[2], 64)
		wait = time.Duration(minutes*60+int(math.Ceil(seconds))) * time.Second
	} else if m := secondsPattern.FindStringSubmatch(body); m != nil {
		seconds, _ := strconv.ParseFloat(m[1], 64)
		wait = time.Duration(math.Ceil(seconds))*time.Second + constants.RateLimitConfig.SecondsPadding
	}

	return max(wait, constants.RateLimitConfig.MinWait)
}

// IsDailyQuota reports whether a 429 body refers to the daily token quota
// rather than the per-minute window.
func IsDailyQuota(body string) bool {
	return dailyQuotaPattern.MatchString(body)
}
