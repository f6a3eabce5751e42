package client

import (
	"context"
	"errors"
	"time"

	"github.com/alfredjeanlab/somno/internal/model"
	"github.com/alfredjeanlab/somno/internal/synth"
)

// FallbackWindows is the number of windows generated when the server is
// unreachable and the request did not ask for a specific count.
const FallbackWindows = 12

// PredictWithFallback calls Predict and, when the server cannot be reached,
// generates a synthetic response locally instead. Errors reported by the
// server itself are returned unchanged.
func PredictWithFallback(ctx context.Context, c SomnoClient, req *PredictRequest) (*model.Response, error) {
	resp, err := c.Predict(ctx, req)
	if err == nil || !errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
		return resp, err
	}

	n := req.NumWindows
	if n <= 0 {
		n = FallbackWindows
	}
	return synth.New(uint64(time.Now().UnixNano())).Response(req.StartWindow, n), nil
}
