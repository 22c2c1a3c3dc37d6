package faults

import (
	"encoding/json"
	"strings"
	"time"
)

// Category buckets an analysis failure for backoff purposes.
type Category string

const (
	RateLimit Category = "rate_limit"
	Safety    Category = "safety"
	Network   Category = "network"
	Other     Category = "other"
)

// Backoff durations per category.
const (
	rateLimitBackoff = 25 * time.Second
	safetyBackoff    = 5 * time.Second
	networkBackoff   = 8 * time.Second
	otherBackoff     = 5 * time.Second
)

// Record is a classified analysis failure.
type Record struct {
	Category  Category
	Message   string
	Backoff   time.Duration
	Timestamp time.Time
}

// Classify maps a raw analysis failure into exactly one Record. It never
// fails: an unrecognizable input classifies as Other.
func Classify(err error) Record {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	msg = unwrapMessage(msg)

	rec := Record{
		Message:   msg,
		Timestamp: time.Now().UTC(),
	}

	lower := strings.ToLower(msg)
	switch {
	case containsAny(lower, "429", "quota", "resource_exhausted"):
		rec.Category = RateLimit
		rec.Backoff = rateLimitBackoff
	case containsAny(lower, "safety", "harmful"):
		rec.Category = Safety
		rec.Backoff = safetyBackoff
	case containsAny(lower, "fetch", "network"):
		rec.Category = Network
		rec.Backoff = networkBackoff
	default:
		rec.Category = Other
		rec.Backoff = otherBackoff
	}
	return rec
}

// unwrapMessage digs the error.message field out of a JSON payload so that
// structured provider errors classify on their human-readable text.
func unwrapMessage(msg string) string {
	trimmed := strings.TrimSpace(msg)
	start := strings.Index(trimmed, "{")
	if start == -1 {
		return msg
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(trimmed[start:]), &payload); err != nil {
		return msg
	}
	if payload.Error.Message == "" {
		return msg
	}
	return payload.Error.Message
}

func containsAny(s string, tokens ...string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
