package constants

import "time"

// AttemptConfig bounds how often an agent turn is regenerated before a
// fallback phrase is used.
var AttemptConfig = struct {
	Greeting          int
	Client            int
	Cashier           int
	GreetingMinLength int
	ReplyMinLength    int
	FallbackTurnLimit int
}{
	Greeting:          2,
	Client:            3,
	Cashier:           3,
	GreetingMinLength: 3,
	ReplyMinLength:    2,
	FallbackTurnLimit: 6, // past this many turns an empty client reply ends the dialogue
}

var RateLimitConfig = struct {
	DefaultWait    time.Duration
	MinWait        time.Duration
	SecondsPadding time.Duration
	MaxRetries     int
}{
	DefaultWait:    15 * time.Second,
	MinWait:        10 * time.Second,
	SecondsPadding: 2 * time.Second,
	MaxRetries:     3,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 5,
	ResetTimeout:     30 * time.Second,
}

var SearchLimits = struct {
	Base   int
	Enrich int
}{
	Base:   30,
	Enrich: 25,
}

var Temperature = struct {
	Client     float64
	Cashier    float64
	Extraction float64
	SingleShot float64
	Batch      float64
}{
	Client:     0.6,
	Cashier:    0.3,
	Extraction: 0.1,
	SingleShot: 0.5,
	Batch:      0.6,
}

var MaxTokens = struct {
	SingleShot int
	Batch      int
}{
	SingleShot: 3072,
	Batch:      6144,
}

var BatchConfig = struct {
	MinSize     int
	MaxSize     int
	DefaultSize int
}{
	MinSize:     3,
	MaxSize:     6,
	DefaultSize: 4,
}

var DialogueDefaults = struct {
	MaxTurns         int
	CalorieThreshold float64
	CalorieTarget    int
	DelayAfterCall   time.Duration
}{
	MaxTurns:         20,
	CalorieThreshold: 0.2,
	CalorieTarget:    2000,
	DelayAfterCall:   6 * time.Second,
}

var StorageConfig = struct {
	RecordPattern   string
	RecordCacheTTL  time.Duration
	SequenceKey     string
	FlagCountersKey string
	WriteTimeout    time.Duration
}{
	RecordPattern:   "dialog-%06d.json",
	RecordCacheTTL:  24 * time.Hour,
	SequenceKey:     "dialoggen:dialog_id",
	FlagCountersKey: "dialoggen:flags",
	WriteTimeout:    30 * time.Second,
}

var StringLimits = struct {
	LogPreview int
}{
	LogPreview: 80,
}
