package mneesdk

import (
	"context"
	"time"

	"github.com/mnee-xyz/mnee-cli/pkg/mnee/cosigner"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/indexer"
)

type ServiceOption func(*service)

func WithIndexer(svc indexer.Indexer) ServiceOption {
	return func(s *service) {
		if svc != nil {
			s.indexer = svc
		}
	}
}

func WithCosigner(svc cosigner.Cosigner) ServiceOption {
	return func(s *service) {
		if svc != nil {
			s.cosigner = svc
		}
	}
}

// WithPollInterval overrides the delay between settlement status reads.
func WithPollInterval(d time.Duration) ServiceOption {
	return func(s *service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithMaxPollAttempts overrides the hard cap on settlement status reads.
func WithMaxPollAttempts(n int) ServiceOption {
	return func(s *service) {
		if n > 0 {
			s.maxPollAttempts = n
		}
	}
}

// WithSleep injects the sleep function driving the polling loop.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ServiceOption {
	return func(s *service) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}
