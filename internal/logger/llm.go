package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"aurora/internal/pkg/jsonutil"
)

var (
	llmMu  sync.Mutex
	llmLog *log.Logger
)

// SetLLMWriter routes advisory exchanges to a dedicated writer. nil disables it.
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

type llmSection struct {
	Title string
	Body  string
}

func logLLM(kind, model, symbol string, sections []llmSection) {
	llmMu.Lock()
	logger := llmLog
	llmMu.Unlock()
	if logger == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	for _, tag := range []string{kind, model, symbol} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		body := sec.Body
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	logger.Print(b.String())
}

// LogLLMRequest records the message sent in one advisory round trip.
// history is the number of earlier messages resent with it.
func LogLLMRequest(model, symbol, user string, history int) {
	sections := []llmSection{
		{Title: "HISTORY", Body: fmt.Sprintf("%d messages", history)},
		{Title: "USER", Body: jsonutil.Pretty(user)},
	}
	logLLM("request", model, symbol, sections)
}

func LogLLMResponse(model, symbol, raw string) {
	logLLM("response", model, symbol, []llmSection{{Title: "RAW", Body: raw}})
}
