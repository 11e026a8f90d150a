package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/google/uuid"

	"github.com/mnee-xyz/mnee-cli/pkg/bsv"
	"github.com/mnee-xyz/mnee-cli/pkg/errors"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
)

// Indexer is the read-side collaborator: token configuration, funding
// sources by address and ancestor transactions for signing context.
type Indexer interface {
	// Config fetches the token's network-wide parameters.
	Config(ctx context.Context) (*types.TokenConfig, error)
	// FundingSources fetches the spendable token-bearing outputs owned by
	// address. The fetch is broad; filter is applied locally so the filter
	// semantics stay engine-controlled. An address without matching outputs
	// yields an empty list, not an error.
	FundingSources(
		ctx context.Context, address string, filter []types.OperationKind,
	) ([]types.FundingSource, error)
	// SourceTransaction fetches the full ancestor transaction of a funding
	// source in the extended (or plain) binary encoding.
	SourceTransaction(ctx context.Context, txid string) (*wire.MsgTx, error)
}

// Config carries the collaborator endpoint settings. It is passed explicitly
// at construction so tests can substitute endpoints.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

type indexer struct {
	cfg        Config
	httpClient *http.Client
}

// New creates an indexer client for the given endpoint configuration.
func New(cfg Config) Indexer {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &indexer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (i *indexer) makeRequest(
	ctx context.Context, method, endpoint string, body io.Reader,
) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, i.cfg.BaseURL+endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if i.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+i.cfg.APIToken)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return bodyBytes, resp.StatusCode, fmt.Errorf(
			"HTTP %d: %s", resp.StatusCode, string(bodyBytes),
		)
	}

	return bodyBytes, resp.StatusCode, nil
}

func (i *indexer) Config(ctx context.Context) (*types.TokenConfig, error) {
	data, status, err := i.makeRequest(ctx, http.MethodGet, "/v1/config", nil)
	if err != nil {
		return nil, errors.CONFIG_UNAVAILABLE.Wrap(err).
			WithMetadata(errors.EndpointMetadata{Endpoint: "/v1/config", Status: status})
	}

	var cfg types.TokenConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.CONFIG_UNAVAILABLE.Wrap(
			fmt.Errorf("failed to unmarshal config: %w", err),
		).WithMetadata(errors.EndpointMetadata{Endpoint: "/v1/config", Status: status})
	}
	return &cfg, nil
}

type fundingSourceDTO struct {
	Txid     string  `json:"txid"`
	Vout     uint32  `json:"vout"`
	Owner    string  `json:"owner"`
	Amt      uint64  `json:"amt"`
	Op       string  `json:"op"`
	Score    float64 `json:"score"`
	Satoshis uint64  `json:"satoshis"`
}

func (i *indexer) FundingSources(
	ctx context.Context, address string, filter []types.OperationKind,
) ([]types.FundingSource, error) {
	body, err := json.Marshal([]string{address})
	if err != nil {
		return nil, errors.INDEX_UNAVAILABLE.Wrap(err)
	}

	data, status, err := i.makeRequest(ctx, http.MethodPost, "/v1/utxos", bytes.NewReader(body))
	if err != nil {
		return nil, errors.INDEX_UNAVAILABLE.Wrap(err).
			WithMetadata(errors.EndpointMetadata{Endpoint: "/v1/utxos", Status: status})
	}

	var dtos []fundingSourceDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, errors.INDEX_UNAVAILABLE.Wrap(
			fmt.Errorf("failed to unmarshal funding sources: %w", err),
		).WithMetadata(errors.EndpointMetadata{Endpoint: "/v1/utxos", Status: status})
	}

	wanted := make(map[types.OperationKind]struct{}, len(filter))
	for _, op := range filter {
		wanted[op] = struct{}{}
	}

	sources := make([]types.FundingSource, 0, len(dtos))
	for _, dto := range dtos {
		op := types.OperationKind(strings.ToLower(dto.Op))
		if len(wanted) > 0 {
			if _, ok := wanted[op]; !ok {
				continue
			}
		}
		sources = append(sources, types.FundingSource{
			SourceTxID:   dto.Txid,
			OutputIndex:  dto.Vout,
			OwnerAddress: dto.Owner,
			AtomicAmount: dto.Amt,
			Operation:    op,
			Score:        dto.Score,
			Satoshis:     dto.Satoshis,
		})
	}
	return sources, nil
}

func (i *indexer) SourceTransaction(ctx context.Context, txid string) (*wire.MsgTx, error) {
	endpoint := fmt.Sprintf("/v1/tx/%s/ef", txid)
	data, status, err := i.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, errors.ANCESTOR_NOT_FOUND.Wrap(err).
				WithMetadata(errors.AncestorMetadata{Txid: txid})
		}
		return nil, errors.ANCESTOR_FETCH_FAILED.Wrap(err).
			WithMetadata(errors.AncestorMetadata{Txid: txid})
	}

	tx, _, err := bsv.DecodeTx(data)
	if err != nil {
		return nil, errors.ANCESTOR_FETCH_FAILED.Wrap(err).
			WithMetadata(errors.AncestorMetadata{Txid: txid})
	}
	return tx, nil
}
