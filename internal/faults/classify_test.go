package faults

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := map[string]struct {
		err         error
		expCategory Category
		expBackoff  time.Duration
	}{
		"A 429 quota failure classifies as rate limit": {
			err:         errors.New("Error 429: RESOURCE_EXHAUSTED"),
			expCategory: RateLimit,
			expBackoff:  25 * time.Second,
		},
		"A quota token alone classifies as rate limit": {
			err:         errors.New("daily quota exceeded"),
			expCategory: RateLimit,
			expBackoff:  25 * time.Second,
		},
		"A safety block classifies as safety": {
			err:         errors.New("response blocked: SAFETY"),
			expCategory: Safety,
			expBackoff:  5 * time.Second,
		},
		"A harmful-content refusal classifies as safety": {
			err:         errors.New("content flagged as potentially harmful"),
			expCategory: Safety,
			expBackoff:  5 * time.Second,
		},
		"A fetch failure classifies as network": {
			err:         errors.New("TypeError: fetch failed"),
			expCategory: Network,
			expBackoff:  8 * time.Second,
		},
		"A network failure classifies as network": {
			err:         errors.New("network is unreachable"),
			expCategory: Network,
			expBackoff:  8 * time.Second,
		},
		"An unknown failure classifies as other": {
			err:         errors.New("weird stuff"),
			expCategory: Other,
			expBackoff:  5 * time.Second,
		},
		"Matching is case-insensitive": {
			err:         errors.New("resource_exhausted"),
			expCategory: RateLimit,
			expBackoff:  25 * time.Second,
		},
		"First match wins over later categories": {
			err:         errors.New("429 while fetching"),
			expCategory: RateLimit,
			expBackoff:  25 * time.Second,
		},
		"A nil error classifies as other": {
			err:         nil,
			expCategory: Other,
			expBackoff:  5 * time.Second,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			rec := Classify(test.err)

			assert.Equal(t, test.expCategory, rec.Category)
			assert.Equal(t, test.expBackoff, rec.Backoff)
			assert.False(t, rec.Timestamp.IsZero())
		})
	}
}

func TestClassifyUnwrapsJSONPayloads(t *testing.T) {
	tests := map[string]struct {
		err         error
		expCategory Category
		expMessage  string
	}{
		"A structured provider error classifies on the inner message": {
			err:         errors.New(`{"error":{"message":"Rate limit: 429 Too Many Requests"}}`),
			expCategory: RateLimit,
			expMessage:  "Rate limit: 429 Too Many Requests",
		},
		"A prefixed JSON payload is still unwrapped": {
			err:         fmt.Errorf("API call failed: %s", `{"error":{"message":"network timeout"}}`),
			expCategory: Network,
			expMessage:  "network timeout",
		},
		"Unparseable JSON falls back to the raw text": {
			err:         errors.New(`{"error": not json at all`),
			expCategory: Other,
			expMessage:  `{"error": not json at all`,
		},
		"JSON without an error message keeps the raw text": {
			err:         errors.New(`{"status": "fetch failed"}`),
			expCategory: Network,
			expMessage:  `{"status": "fetch failed"}`,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			rec := Classify(test.err)

			assert.Equal(t, test.expCategory, rec.Category)
			assert.Equal(t, test.expMessage, rec.Message)
		})
	}
}
