package cosigner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mnee-xyz/mnee-cli/pkg/errors"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
)

// SignatureRequest is a per-input signing job: enough context to rebuild the
// exact signing preimage on the cosigning side.
type SignatureRequest struct {
	PrevTxID         string `json:"prevTxid"`
	OutputIndex      uint32 `json:"outputIndex"`
	InputIndex       int    `json:"inputIndex"`
	OwnerAddress     string `json:"address"`
	LockingScriptHex string `json:"script"`
	Satoshis         uint64 `json:"satoshis"`
	SighashFlags     uint32 `json:"sigHashType"`
}

// SignatureResponse is the owner-side result of a signing job. Responses are
// matched back to inputs by InputIndex, never by array order.
type SignatureResponse struct {
	InputIndex   int    `json:"inputIndex"`
	SignatureHex string `json:"sig"`
	PublicKeyHex string `json:"pubKey"`
	SighashFlags uint32 `json:"sigHashType"`
}

// CosignResult is the cosigning authority's answer: either a finalized
// transaction carrying both parties' unlocking data, or a ticket to poll.
type CosignResult struct {
	FinalTx  []byte
	TicketID string
}

// Cosigner is the write-side collaborator: cosign exchange, broadcast and
// ticket status reads.
type Cosigner interface {
	Cosign(ctx context.Context, rawTxHex string, requests []SignatureRequest) (*CosignResult, error)
	Broadcast(ctx context.Context, rawTx []byte) (string, error)
	TransferStatus(ctx context.Context, ticketID string) (*types.TransferStatus, error)
}

// Config carries the collaborator endpoint settings. It is passed explicitly
// at construction so tests can substitute endpoints.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

type client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a cosigner client for the given endpoint configuration.
func New(cfg Config) Cosigner {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *client) makeRequest(
	ctx context.Context, method, endpoint, contentType string, body io.Reader,
) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	resp, err := c.httpClient.Do(req)
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

type cosignRequestDTO struct {
	RawTx             string             `json:"rawtx"`
	SignatureRequests []SignatureRequest `json:"signatureRequests"`
}

type cosignResponseDTO struct {
	RawTx    string          `json:"rawtx,omitempty"`
	TicketID string          `json:"ticketId,omitempty"`
	Error    *errorDetailDTO `json:"error,omitempty"`
}

type errorDetailDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Address string `json:"address,omitempty"`
}

// rejectReason maps the authority's error codes to the engine's cosign
// rejection sub-reasons. Unknown codes are not rejections.
func rejectReason(code string) (errors.CosignRejectReason, bool) {
	switch strings.ToLower(code) {
	case "address-frozen", "frozen":
		return errors.CosignReasonFrozen, true
	case "address-denylisted", "denylisted", "blacklisted":
		return errors.CosignReasonDenylisted, true
	case "service-paused", "paused":
		return errors.CosignReasonPaused, true
	}
	return "", false
}

func (c *client) Cosign(
	ctx context.Context, rawTxHex string, requests []SignatureRequest,
) (*CosignResult, error) {
	body, err := json.Marshal(cosignRequestDTO{
		RawTx:             rawTxHex,
		SignatureRequests: requests,
	})
	if err != nil {
		return nil, errors.COSIGN_UNAVAILABLE.Wrap(err)
	}

	data, status, err := c.makeRequest(
		ctx, http.MethodPost, "/v1/transfer", "application/json", bytes.NewReader(body),
	)
	if err != nil {
		// 4xx answers carry a structured rejection; everything else is a
		// transport-level failure.
		if status >= 400 && status < 500 && len(data) > 0 {
			var dto cosignResponseDTO
			if jsonErr := json.Unmarshal(data, &dto); jsonErr == nil && dto.Error != nil {
				if reason, ok := rejectReason(dto.Error.Code); ok {
					return nil, errors.COSIGN_REJECTED.New(
						"cosigning authority declined: %s", dto.Error.Message,
					).WithMetadata(errors.CosignMetadata{
						Reason:  reason,
						Address: dto.Error.Address,
					})
				}
				return nil, errors.COSIGN_REJECTED.New(
					"cosigning authority declined: %s", dto.Error.Message,
				).WithMetadata(errors.CosignMetadata{Reason: errors.CosignReasonUnknown})
			}
		}
		return nil, errors.COSIGN_UNAVAILABLE.Wrap(err).
			WithMetadata(errors.EndpointMetadata{Endpoint: "/v1/transfer", Status: status})
	}

	var dto cosignResponseDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, errors.COSIGN_UNAVAILABLE.Wrap(
			fmt.Errorf("failed to unmarshal cosign response: %w", err),
		)
	}

	result := &CosignResult{TicketID: dto.TicketID}
	if dto.RawTx != "" {
		raw, err := base64.StdEncoding.DecodeString(dto.RawTx)
		if err != nil {
			return nil, errors.COSIGN_UNAVAILABLE.Wrap(
				fmt.Errorf("failed to decode transfer payload: %w", err),
			)
		}
		result.FinalTx = raw
	}
	if result.FinalTx == nil && result.TicketID == "" {
		return nil, errors.COSIGN_UNAVAILABLE.New("cosign response carries neither tx nor ticket")
	}
	return result, nil
}

type broadcastResponseDTO struct {
	Txid string `json:"txid"`
}

func (c *client) Broadcast(ctx context.Context, rawTx []byte) (string, error) {
	data, _, err := c.makeRequest(
		ctx, http.MethodPost, "/v1/broadcast", "application/octet-stream", bytes.NewReader(rawTx),
	)
	if err != nil {
		return "", errors.BROADCAST_FAILED.Wrap(err)
	}

	var dto broadcastResponseDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return "", errors.BROADCAST_FAILED.Wrap(
			fmt.Errorf("failed to unmarshal broadcast response: %w", err),
		)
	}
	if dto.Txid == "" {
		return "", errors.BROADCAST_FAILED.New("broadcast response missing txid")
	}
	return dto.Txid, nil
}

type transferStatusDTO struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Txid      string    `json:"txid,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *client) TransferStatus(
	ctx context.Context, ticketID string,
) (*types.TransferStatus, error) {
	endpoint := fmt.Sprintf("/v1/ticket/%s", ticketID)
	data, status, err := c.makeRequest(ctx, http.MethodGet, endpoint, "application/json", nil)
	if err != nil {
		return nil, errors.COSIGN_UNAVAILABLE.Wrap(err).
			WithMetadata(errors.EndpointMetadata{Endpoint: endpoint, Status: status})
	}

	var dto transferStatusDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, errors.COSIGN_UNAVAILABLE.Wrap(
			fmt.Errorf("failed to unmarshal ticket status: %w", err),
		)
	}

	return &types.TransferStatus{
		TicketID:  dto.ID,
		Status:    types.Status(strings.ToUpper(dto.Status)),
		TxID:      dto.Txid,
		Errors:    dto.Errors,
		CreatedAt: dto.CreatedAt,
		UpdatedAt: dto.UpdatedAt,
	}, nil
}
