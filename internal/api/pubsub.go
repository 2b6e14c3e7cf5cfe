package api

import (
	"context"
	"log/slog"

	"github.com/mathduel/mathduel/internal/domain"
)

// publishResult forwards an accepted answer to the room channel. Delivery
// failures are logged and swallowed: the submitting client already got its
// response and local state proceeds optimistically.
func (a *API) publishResult(ctx context.Context, e domain.EventAnswerAccepted) error {
	if err := a.bus.Publish(ctx, e.Room, domain.EventNameResult, e.Result); err != nil {
		slog.ErrorContext(ctx, "api: publish result failed",
			"room", e.Room, "round", e.Result.RoundID, "error", err)
	}

	return nil
}

func (a *API) publishWinner(ctx context.Context, e domain.EventWinnerDecided) error {
	if err := a.bus.Publish(ctx, e.Room, domain.EventNameWinner, e.Winner); err != nil {
		slog.ErrorContext(ctx, "api: publish winner failed",
			"room", e.Room, "round", e.Winner.RoundID, "error", err)
	}

	return nil
}
