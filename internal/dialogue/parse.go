package dialogue

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
)

var (
	turnLinePattern  = regexp.MustCompile(`(?i)^(Cashier|Client|Кассир|Клиент):\s*(.*)$`)
	bulletPattern    = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)
	cashierLabel     = regexp.MustCompile(`(?i)cashier|кассир`)
	dialogSeparator  = regexp.MustCompile(`(?i)===\s*DIALOG\s+(\d+)\s*===`)
	markdownEmphasis = strings.NewReplacer("**", "", "__", "")
)

// ParseTranscript turns "Speaker: text" lines into turns. Labels may be English
// or Russian in any case; list bullets and bold markers are tolerated. Other
// lines are dropped.
func ParseTranscript(raw string) domain.Transcript {
	var turns domain.Transcript
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = bulletPattern.ReplaceAllString(line, "")
		line = markdownEmphasis.Replace(line)

		m := turnLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		if text == "" {
			continue
		}
		speaker := domain.SpeakerClient
		if cashierLabel.MatchString(m[1]) {
			speaker = domain.SpeakerCashier
		}
		turns = append(turns, domain.Turn{Speaker: speaker, Text: text})
	}
	return turns
}

// BatchChunk is the text under one ===DIALOG N=== marker.
type BatchChunk struct {
	Index int // N as written by the model, 1-based
	Text  string
}

// SplitBatch cuts a batched response on its ===DIALOG N=== markers. Text
// before the first marker is preamble and dropped; markers with an empty
// body are skipped. A response without any marker is one chunk numbered 1.
func SplitBatch(raw string) []BatchChunk {
	marks := dialogSeparator.FindAllStringSubmatchIndex(raw, -1)
	if len(marks) == 0 {
		if text := strings.TrimSpace(raw); text != "" {
			return []BatchChunk{{Index: 1, Text: text}}
		}
		return nil
	}

	chunks := make([]BatchChunk, 0, len(marks))
	for i, m := range marks {
		end := len(raw)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		text := strings.TrimSpace(raw[m[1]:end])
		if text == "" {
			continue
		}
		n, _ := strconv.Atoi(raw[m[2]:m[3]])
		chunks = append(chunks, BatchChunk{Index: n, Text: text})
	}
	return chunks
}

// AssignChunks maps chunks to profile slots 0..n-1 by their marker number.
// When the numbering is unusable (out of range or repeated) the chunks are
// taken in order instead. Slots without a chunk stay empty.
func AssignChunks(chunks []BatchChunk, n int) []string {
	slots := make([]string, n)
	filled := make([]bool, n)
	numbered := true
	for _, c := range chunks {
		if c.Index < 1 || c.Index > n || filled[c.Index-1] {
			numbered = false
			break
		}
		filled[c.Index-1] = true
	}

	if numbered {
		for _, c := range chunks {
			slots[c.Index-1] = c.Text
		}
		return slots
	}
	for i, c := range chunks {
		if i >= n {
			break
		}
		slots[i] = c.Text
	}
	return slots
}

// Repair applies the post-parse fixes: fewer than minTurns turns becomes the
// scripted exchange, and a transcript opened by the client gets a greeting.
func Repair(t domain.Transcript, lang domain.Language, minTurns int, pb *PhraseBook) domain.Transcript {
	if len(t) < minTurns || len(t) == 0 {
		return pb.ScriptedExchange(lang)
	}
	if t[0].Speaker != domain.SpeakerCashier {
		repaired := make(domain.Transcript, 0, len(t)+1)
		repaired = append(repaired, domain.Turn{Speaker: domain.SpeakerCashier, Text: pb.ShortGreeting.For(lang)})
		return append(repaired, t...)
	}
	return t
}
