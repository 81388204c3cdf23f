package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/internal/llm"
)

var _ llm.Observer = (*Metrics)(nil)

func TestCompletionAndRateLimitCounters(t *testing.T) {
	m := New()
	m.ObserveCompletion("groq", llm.OutcomeOK, 2*time.Second)
	m.ObserveCompletion("groq", llm.OutcomeOK, time.Second)
	m.ObserveCompletion("groq", llm.OutcomeRateLimited, time.Second)
	m.ObserveRateLimit("groq", false, 15*time.Second)
	m.ObserveRateLimit("groq", true, 10*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.completions.WithLabelValues("groq", llm.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimitWaits.WithLabelValues("groq", "daily")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.rateLimitSeconds.WithLabelValues("groq")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.completionSeconds))
}

func TestObserveDialogue(t *testing.T) {
	m := New()
	m.ObserveDialogue(&domain.DialogueRecord{
		Mode:            "batch",
		Turns:           make(domain.Transcript, 12),
		TotalEnergy:     1800,
		ValidationFlags: domain.ValidationFlags{Hallucination: true, IncompleteOrder: true},
	})
	m.ObserveFailure("batch")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dialogues.WithLabelValues("batch", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dialogues.WithLabelValues("batch", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flags.WithLabelValues("hallucination")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.flags))

	expected := `
# HELP dialoggen_validation_flags_total Raised validation flags
# TYPE dialoggen_validation_flags_total counter
dialoggen_validation_flags_total{flag="hallucination"} 1
dialoggen_validation_flags_total{flag="incomplete_order"} 1
`
	require.NoError(t, testutil.CollectAndCompare(m.flags, strings.NewReader(expected)))
}

func TestWriteToTextfile(t *testing.T) {
	m := New()
	m.ObserveFailure("turn")

	path := filepath.Join(t.TempDir(), "dialoggen.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `dialoggen_dialogues_total{mode="turn",status="error"} 1`)
}
