package observability

import (
	"crypto/rand"
	"encoding/hex"
)

// TraceContext carries the per-request correlation pair surfaced in error
// envelopes and logs.
type TraceContext struct {
	TraceID string
	SpanID  string
}

// NewTraceContext mints a random trace/span id pair.
func NewTraceContext() TraceContext {
	return TraceContext{
		TraceID: randomHex(16),
		SpanID:  randomHex(8),
	}
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
