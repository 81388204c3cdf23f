package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/config"
	"github.com/kapu/cashier-dialog-gen/internal/util"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

type scriptedProvider struct {
	limited bool
	replies []func() (string, error)
	calls   int
}

func (p *scriptedProvider) Name() string      { return "fake" }
func (p *scriptedProvider) RateLimited() bool { return p.limited }
func (p *scriptedProvider) Chat(_ context.Context, _ Request) (string, error) {
	i := p.calls
	p.calls++
	if i >= len(p.replies) {
		return "", fmt.Errorf("unexpected call %d", i)
	}
	return p.replies[i]()
}

func reply(text string) func() (string, error) {
	return func() (string, error) { return text, nil }
}

func fail(status int, body string) func() (string, error) {
	return func() (string, error) { return "", errors.NewAPIError("fake", status, body) }
}

type recordedSleeps struct {
	waits []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

type countingObserver struct {
	outcomes []string
	waits    int
}

func (o *countingObserver) ObserveCompletion(_, outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

func (o *countingObserver) ObserveRateLimit(string, bool, time.Duration) { o.waits++ }

func TestCompleteRetriesOnRateLimit(t *testing.T) {
	provider := &scriptedProvider{
		limited: true,
		replies: []func() (string, error){
			fail(429, "Please try again in 1m30s"),
			reply("  Hello!  "),
		},
	}
	sleeps := &recordedSleeps{}
	observer := &countingObserver{}
	client := NewClient(provider, 6*time.Second, zap.NewNop(), WithSleep(sleeps.sleep), WithObserver(observer))

	text, err := client.Complete(context.Background(), Request{Messages: []Message{User("hi")}, MaxRetries: 3})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)
	assert.Equal(t, []time.Duration{90 * time.Second, 6 * time.Second}, sleeps.waits)
	assert.Equal(t, []string{OutcomeRateLimited, OutcomeOK}, observer.outcomes)
	assert.Equal(t, 1, observer.waits)
}

func TestCompleteRateLimitExhausted(t *testing.T) {
	provider := &scriptedProvider{
		limited: true,
		replies: []func() (string, error){
			fail(429, "try again in 5s"),
			fail(429, "try again in 5s"),
			fail(429, "Used 500000 on tokens per day (TPD)"),
		},
	}
	sleeps := &recordedSleeps{}
	client := NewClient(provider, 0, nil, WithSleep(sleeps.sleep))

	_, err := client.Complete(context.Background(), Request{MaxRetries: 2})
	require.Error(t, err)

	var rlErr *errors.RateLimitError
	require.True(t, stderrors.As(err, &rlErr))
	assert.True(t, rlErr.Daily)
	assert.Contains(t, rlErr.Error(), "daily limit exceeded")
	assert.Equal(t, 3, provider.calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, sleeps.waits)
}

func TestCompleteOtherErrorsAreFatal(t *testing.T) {
	provider := &scriptedProvider{
		replies: []func() (string, error){
			fail(500, "internal"),
			reply("never reached"),
		},
	}
	client := NewClient(provider, 0, nil)

	_, err := client.Complete(context.Background(), Request{MaxRetries: 3})
	require.Error(t, err)

	var apiErr *errors.APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Equal(t, 1, provider.calls)
}

func TestCompleteNoDelayForLocalProvider(t *testing.T) {
	provider := &scriptedProvider{replies: []func() (string, error){reply("ok")}}
	sleeps := &recordedSleeps{}
	client := NewClient(provider, 6*time.Second, nil, WithSleep(sleeps.sleep))

	_, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, sleeps.waits)
}

func TestCompleteCircuitOpensAfterFailures(t *testing.T) {
	replies := make([]func() (string, error), 0, 2)
	for i := 0; i < 2; i++ {
		replies = append(replies, fail(503, "unavailable"))
	}
	provider := &scriptedProvider{replies: replies}
	breaker := util.NewCircuitBreaker("fake", 2, time.Hour, nil)
	client := NewClient(provider, 0, nil, WithCircuitBreaker(breaker))

	for i := 0; i < 2; i++ {
		_, err := client.Complete(context.Background(), Request{})
		require.Error(t, err)
	}
	_, err := client.Complete(context.Background(), Request{})
	var svcErr *errors.ServiceError
	require.True(t, stderrors.As(err, &svcErr))
	assert.Equal(t, 2, provider.calls)
}

func TestOpenAIProviderAgainstCompatibleServer(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached. Please try again in 2s.","type":"tokens","code":"rate_limit_exceeded"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"test","choices":[{"index":0,"message":{"role":"assistant","content":"  Здравствуйте!  "},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(OpenAIProviderConfig{
		Name:        "groq",
		BaseURL:     server.URL + "/v1/",
		APIKey:      "test-key",
		Model:       "test",
		RateLimited: true,
	}, zap.NewNop())

	sleeps := &recordedSleeps{}
	client := NewClient(provider, time.Second, nil, WithSleep(sleeps.sleep))

	text, err := client.Complete(context.Background(), Request{
		Messages:    []Message{System("sys"), User("hi"), Assistant("hello"), User("again")},
		Temperature: 0.3,
		MaxRetries:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Здравствуйте!", text)
	assert.Equal(t, int32(2), hits.Load())
	require.Len(t, sleeps.waits, 2)
	assert.GreaterOrEqual(t, sleeps.waits[0], 10*time.Second)
	assert.Equal(t, time.Second, sleeps.waits[1])
}

func TestOpenAIProviderBearerHeader(t *testing.T) {
	var auth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"test","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	t.Setenv("OPENAI_API_KEY", "from-env")
	local := NewOpenAIProvider(OpenAIProviderConfig{Name: "ollama", BaseURL: server.URL + "/v1/", Model: "qwen3"}, nil)
	hosted := NewOpenAIProvider(OpenAIProviderConfig{Name: "groq", BaseURL: server.URL + "/v1/", APIKey: "gsk-test", Model: "llama", RateLimited: true}, nil)

	req := Request{Messages: []Message{User("hi")}}
	_, err := local.Chat(context.Background(), req)
	require.NoError(t, err)
	_, err = hosted.Chat(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, auth, 2)
	assert.Empty(t, auth[0], "keyless providers send no bearer token")
	assert.Equal(t, "Bearer gsk-test", auth[1])
}

func TestOpenAIProviderServerErrorIsFatal(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"model not found"}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(OpenAIProviderConfig{Name: "ollama", BaseURL: server.URL + "/v1/", Model: "missing"}, nil)
	client := NewClient(provider, 0, nil, WithCircuitBreaker(nil))

	_, err := client.Complete(context.Background(), Request{Messages: []Message{User("hi")}, MaxRetries: 3})
	require.Error(t, err)

	var apiErr *errors.APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewProviderRequiresCredentials(t *testing.T) {
	_, err := NewProvider(context.Background(), config.APIConfig{Provider: config.ProviderZai, Model: "glm"}, nil)
	var cfgErr *errors.ConfigurationError
	require.True(t, stderrors.As(err, &cfgErr))

	_, err = NewProvider(context.Background(), config.APIConfig{Provider: config.ProviderGemini, Model: "gemini"}, nil)
	require.True(t, stderrors.As(err, &cfgErr))

	p, err := NewProvider(context.Background(), config.APIConfig{Provider: config.ProviderOllama, Model: "qwen3", OllamaURL: "http://localhost:11434/v1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
	assert.False(t, p.RateLimited())
}

func TestToGeminiContents(t *testing.T) {
	contents, system := toGeminiContents([]Message{System("a"), User("b"), Assistant("c"), System("d")})
	require.NotNil(t, system)
	assert.Equal(t, "a\n\nd", system.Parts[0].Text)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
}

func TestClassifyGeminiError(t *testing.T) {
	err := classifyGeminiError(fmt.Errorf("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED"))
	var apiErr *errors.APIError
	require.True(t, stderrors.As(err, &apiErr))
	assert.True(t, apiErr.IsRateLimited())

	plain := fmt.Errorf("dial tcp: connection refused")
	assert.Equal(t, plain, classifyGeminiError(plain))
}
