package arenakit

import (
	"context"
	"fmt"

	"github.com/KyberNetwork/logger"
)

// ResumePendingOutcomes reloads outcomes that were submitted but not yet
// settled when the process last stopped, re-registers them on the session and
// restarts confirmation tracking for each. It returns the number of resumed
// outcomes.
//
// The session must have an outcome store configured.
func (ws *WalletSession) ResumePendingOutcomes(ctx context.Context) (int, error) {
	if ws.outcomeStore == nil {
		return 0, fmt.Errorf("no outcome store configured")
	}

	pending, err := ws.outcomeStore.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("couldn't list pending outcomes: %w", err)
	}

	resumed := 0
	for _, outcome := range pending {
		if outcome.Hash == nil || outcome.Receipt != nil {
			continue
		}
		if _, loaded := ws.outcomes.LoadOrStore(outcome.RequestID, outcome); loaded {
			continue
		}
		ws.trackOutcome(outcome.RequestID, *outcome.Hash)
		resumed++
	}

	if resumed > 0 {
		logger.WithFields(logger.Fields{
			"resumed": resumed,
		}).Info("Resumed confirmation tracking for pending outcomes")
	}
	return resumed, nil
}
