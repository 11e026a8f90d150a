package mneesdk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mnee-xyz/mnee-cli/pkg/mnee/cosigner"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/indexer"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
)

const (
	defaultPollInterval    = 5 * time.Second
	defaultMaxPollAttempts = 60
)

// defaultSourceFilter selects the operation kinds whose outputs are
// spendable in a transfer.
var defaultSourceFilter = []types.OperationKind{
	types.OperationTransfer,
	types.OperationDeployMint,
}

// Config carries the collaborator endpoints. Everything is explicit; there
// are no module-level endpoints or tokens.
type Config struct {
	IndexerURL  string
	CosignerURL string
	APIToken    string
}

type service struct {
	indexer  indexer.Indexer
	cosigner cosigner.Cosigner

	pollInterval    time.Duration
	maxPollAttempts int
	sleep           func(ctx context.Context, d time.Duration) error

	// addressLocks serializes the fetch-and-select critical section per
	// address so concurrent transfers cannot double-spend the same outputs.
	addressLocks sync.Map
}

// New creates the settlement engine for the given collaborator endpoints.
func New(cfg Config, opts ...ServiceOption) (MneeClient, error) {
	svc := &service{
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
		sleep:           sleepWithContext,
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.indexer == nil {
		if cfg.IndexerURL == "" {
			return nil, fmt.Errorf("missing indexer URL")
		}
		svc.indexer = indexer.New(indexer.Config{
			BaseURL:  cfg.IndexerURL,
			APIToken: cfg.APIToken,
		})
	}
	if svc.cosigner == nil {
		if cfg.CosignerURL == "" {
			return nil, fmt.Errorf("missing cosigner URL")
		}
		svc.cosigner = cosigner.New(cosigner.Config{
			BaseURL:  cfg.CosignerURL,
			APIToken: cfg.APIToken,
		})
	}

	return svc, nil
}

func (s *service) GetConfig(ctx context.Context) (*types.TokenConfig, error) {
	return s.indexer.Config(ctx)
}

func (s *service) TransferStatus(
	ctx context.Context, ticketID string,
) (*types.TransferStatus, error) {
	return s.cosigner.TransferStatus(ctx, ticketID)
}

// lockAddress acquires the per-address critical section and returns its
// release function.
func (s *service) lockAddress(address string) func() {
	mu, _ := s.addressLocks.LoadOrStore(address, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	return lock.Unlock
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
