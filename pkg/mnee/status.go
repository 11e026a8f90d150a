package mneesdk

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/mnee-xyz/mnee-cli/pkg/errors"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
)

type PollOption func(*pollOptions)

// WithOnChange registers a callback invoked when the observed status
// differs from the previous observation (edge-triggered).
func WithOnChange(fn func(types.TransferStatus)) PollOption {
	return func(o *pollOptions) {
		o.onChange = fn
	}
}

type pollOptions struct {
	onChange func(types.TransferStatus)
}

// WaitForSettlement drives the polling state machine: BROADCASTING is the
// only non-terminal state; the loop reads the ticket status up to the
// attempt cap and returns the first status that differs from BROADCASTING.
// Only status reads are retried, never the underlying submission. Exceeding
// the cap means "we don't know", which is distinct from the network telling
// us the transfer FAILED.
func (s *service) WaitForSettlement(
	ctx context.Context, ticketID string, opts ...PollOption,
) (*types.TransferStatus, error) {
	options := &pollOptions{}
	for _, opt := range opts {
		opt(options)
	}

	previous := types.StatusBroadcasting

	for attempt := 1; attempt <= s.maxPollAttempts; attempt++ {
		status, err := s.cosigner.TransferStatus(ctx, ticketID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// A failed read consumes an attempt; the next tick retries it.
			log.WithError(err).WithField("ticket", ticketID).Warn("settlement status read failed")
		} else {
			if status.Status != previous && options.onChange != nil {
				options.onChange(*status)
			}
			if status.Status != types.StatusBroadcasting {
				return status, nil
			}
			previous = status.Status
		}

		if attempt == s.maxPollAttempts {
			break
		}
		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return nil, err
		}
	}

	return nil, errors.SETTLEMENT_TIMEOUT.New(
		"ticket %s still broadcasting after %d reads", ticketID, s.maxPollAttempts,
	).WithMetadata(errors.TimeoutMetadata{TicketID: ticketID, Attempts: s.maxPollAttempts})
}
