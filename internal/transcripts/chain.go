package transcripts

import (
	"context"
	"errors"
	"fmt"

	"earnings-analyst/internal/interfaces"
	"earnings-analyst/internal/logger"
	"earnings-analyst/internal/types"
)

// SourceChain tries transcript sources in order. NotFound falls through to
// the next source; transport failures are logged and also fall through, but
// are preserved so the caller sees the real failure when nothing succeeds.
type SourceChain struct {
	sources []interfaces.TranscriptSource
}

func NewSourceChain(sources ...interfaces.TranscriptSource) *SourceChain {
	return &SourceChain{sources: sources}
}

func (c *SourceChain) FetchTranscript(ctx context.Context, ticker string, year, quarter int) (*types.Transcript, error) {
	var lastErr error
	for _, src := range c.sources {
		t, err := src.FetchTranscript(ctx, ticker, year, quarter)
		if err == nil {
			return t, nil
		}
		if errors.Is(err, types.ErrInvalidArgument) {
			// Local precondition violation; trying another source cannot help.
			return nil, err
		}
		if !errors.Is(err, types.ErrNotFound) {
			logger.ErrorWithErr(ctx, "Transcript source failed, trying next", err, "ticker", ticker)
			lastErr = err
			continue
		}
		if lastErr == nil {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no transcript sources configured", types.ErrNotFound)
	}
	return nil, lastErr
}

func (c *SourceChain) FetchCompanyProfile(ctx context.Context, ticker string) (*types.CompanyProfile, error) {
	var lastErr error
	for _, src := range c.sources {
		p, err := src.FetchCompanyProfile(ctx, ticker)
		if err == nil {
			return p, nil
		}
		if errors.Is(err, types.ErrInvalidArgument) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no transcript sources configured", types.ErrNotFound)
	}
	return nil, lastErr
}
