package usecase

import (
	"time"

	"github.com/nimbusworks/workspace-assistant/internal/core/ports"
)

// nopObserver stands in when no metrics sink is wired, so the usecases
// never have to nil-check before recording.
type nopObserver struct{}

func (nopObserver) RecordQuery(string, string, int, time.Duration) {}
func (nopObserver) RecordRerank(time.Duration)                     {}
func (nopObserver) RecordToolCall(string, string)                  {}
func (nopObserver) RecordGuardrailRefusal(string)                  {}
func (nopObserver) RecordOrchestratorRun(int)                      {}

func observerOrNop(observer ports.QueryObserver) ports.QueryObserver {
	if observer == nil {
		return nopObserver{}
	}
	return observer
}
