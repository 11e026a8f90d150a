package cosigner_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mnee-xyz/mnee-cli/pkg/errors"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/cosigner"
	"github.com/mnee-xyz/mnee-cli/pkg/mnee/types"
)

func TestCosign(t *testing.T) {
	requests := []cosigner.SignatureRequest{{
		PrevTxID:     "aa",
		OutputIndex:  1,
		InputIndex:   0,
		OwnerAddress: "addr1",
		Satoshis:     1,
		SighashFlags: 0xC1,
	}}

	t.Run("synchronous answer carries the finalized tx", func(t *testing.T) {
		finalTx := []byte{0x01, 0x00, 0x00, 0x00}

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/v1/transfer", r.URL.Path)
			require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

			var body struct {
				RawTx             string                      `json:"rawtx"`
				SignatureRequests []cosigner.SignatureRequest `json:"signatureRequests"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "deadbeef", body.RawTx)
			require.Equal(t, requests, body.SignatureRequests)

			_ = json.NewEncoder(w).Encode(map[string]string{
				"rawtx": base64.StdEncoding.EncodeToString(finalTx),
			})
		}))
		defer srv.Close()

		client := cosigner.New(cosigner.Config{BaseURL: srv.URL, APIToken: "test-token"})
		result, err := client.Cosign(context.Background(), "deadbeef", requests)
		require.NoError(t, err)
		require.Equal(t, finalTx, result.FinalTx)
		require.Empty(t, result.TicketID)
	})

	t.Run("asynchronous answer carries a ticket", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"ticketId": "ticket-42"})
		}))
		defer srv.Close()

		client := cosigner.New(cosigner.Config{BaseURL: srv.URL})
		result, err := client.Cosign(context.Background(), "deadbeef", requests)
		require.NoError(t, err)
		require.Equal(t, "ticket-42", result.TicketID)
		require.Nil(t, result.FinalTx)
	})

	t.Run("frozen address rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"code":    "address-frozen",
					"message": "sender address is frozen",
					"address": "addr1",
				},
			})
		}))
		defer srv.Close()

		client := cosigner.New(cosigner.Config{BaseURL: srv.URL})
		_, err := client.Cosign(context.Background(), "deadbeef", requests)
		require.Error(t, err)
		require.True(t, errors.COSIGN_REJECTED.Is(err))

		reason, ok := errors.RejectReason(err)
		require.True(t, ok)
		require.Equal(t, errors.CosignReasonFrozen, reason)
	})

	t.Run("unrecognized rejection codes keep the unknown reason", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "quota-exceeded", "message": "slow down"},
			})
		}))
		defer srv.Close()

		client := cosigner.New(cosigner.Config{BaseURL: srv.URL})
		_, err := client.Cosign(context.Background(), "deadbeef", requests)
		require.Error(t, err)
		require.True(t, errors.COSIGN_REJECTED.Is(err))

		reason, ok := errors.RejectReason(err)
		require.True(t, ok)
		require.Equal(t, errors.CosignReasonUnknown, reason)
	})

	t.Run("5xx is COSIGN_UNAVAILABLE, not a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := cosigner.New(cosigner.Config{BaseURL: srv.URL})
		_, err := client.Cosign(context.Background(), "deadbeef", requests)
		require.Error(t, err)
		require.True(t, errors.COSIGN_UNAVAILABLE.Is(err))
		require.False(t, errors.COSIGN_REJECTED.Is(err))
	})

	t.Run("answer without tx or ticket is rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client := cosigner.New(cosigner.Config{BaseURL: srv.URL})
		_, err := client.Cosign(context.Background(), "deadbeef", requests)
		require.Error(t, err)
		require.True(t, errors.COSIGN_UNAVAILABLE.Is(err))
	})
}

func TestBroadcast(t *testing.T) {
	t.Run("posts the raw tx and returns the txid", func(t *testing.T) {
		rawTx := []byte{0x01, 0x00, 0x00, 0x00}

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/broadcast", r.URL.Path)
			require.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
			_ = json.NewEncoder(w).Encode(map[string]string{"txid": "cafe"})
		}))
		defer srv.Close()

		client := cosigner.New(cosigner.Config{BaseURL: srv.URL})
		txid, err := client.Broadcast(context.Background(), rawTx)
		require.NoError(t, err)
		require.Equal(t, "cafe", txid)
	})

	t.Run("failure is BROADCAST_FAILED", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		client := cosigner.New(cosigner.Config{BaseURL: srv.URL})
		_, err := client.Broadcast(context.Background(), []byte{0x01})
		require.Error(t, err)
		require.True(t, errors.BROADCAST_FAILED.Is(err))
	})
}

func TestTransferStatus(t *testing.T) {
	t.Run("maps the ticket record", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/ticket/ticket-42", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "ticket-42",
				"status": "success",
				"txid":   "cafe",
			})
		}))
		defer srv.Close()

		client := cosigner.New(cosigner.Config{BaseURL: srv.URL})
		status, err := client.TransferStatus(context.Background(), "ticket-42")
		require.NoError(t, err)
		require.Equal(t, "ticket-42", status.TicketID)
		require.Equal(t, types.StatusSuccess, status.Status)
		require.Equal(t, "cafe", status.TxID)
	})

	t.Run("read failure is COSIGN_UNAVAILABLE", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := cosigner.New(cosigner.Config{BaseURL: srv.URL})
		_, err := client.TransferStatus(context.Background(), "ticket-42")
		require.Error(t, err)
		require.True(t, errors.COSIGN_UNAVAILABLE.Is(err))
	})
}
