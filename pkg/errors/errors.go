package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Code is the type representing a namespaced engine error code.
type Code[MT any] struct {
	Code       uint16
	Name       string
	HTTPStatus int
}

// New creates a new error with the given code and the message
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

// Is reports whether err carries this code.
func (c Code[MT]) Is(err error) bool {
	var typed Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.Code() == c.Code
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	HTTPStatus() int
	Metadata() map[string]string
	Unwrap() error
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) HTTPStatus() int {
	return e.code.HTTPStatus
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) Unwrap() error {
	return e.cause
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

// CosignRejectReason qualifies a COSIGN_REJECTED error. The cosigning
// authority distinguishes these with dedicated error codes and callers must
// translate each into a distinct actionable message.
type CosignRejectReason string

const (
	CosignReasonFrozen     CosignRejectReason = "frozen"
	CosignReasonDenylisted CosignRejectReason = "denylisted"
	CosignReasonPaused     CosignRejectReason = "paused"
	CosignReasonUnknown    CosignRejectReason = "unknown"
)

type EndpointMetadata struct {
	Endpoint string `json:"endpoint"`
	Status   int    `json:"status"`
}

type RequestMetadata struct {
	Recipients int    `json:"recipients"`
	Amount     uint64 `json:"amount"`
}

type FundsMetadata struct {
	Target    uint64 `json:"target"`
	Fee       uint64 `json:"fee"`
	Available uint64 `json:"available"`
}

type FeeTierMetadata struct {
	Amount uint64 `json:"amount"`
	Tiers  int    `json:"tiers"`
}

type AncestorMetadata struct {
	Txid string `json:"txid"`
}

type SigningMetadata struct {
	InputIndex int `json:"input_index"`
}

type CosignMetadata struct {
	Reason  CosignRejectReason `json:"reason"`
	Address string             `json:"address,omitempty"`
}

type BroadcastMetadata struct {
	Txid string `json:"txid,omitempty"`
}

type TimeoutMetadata struct {
	TicketID string `json:"ticket_id"`
	Attempts int    `json:"attempts"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", http.StatusInternalServerError}

var CONFIG_UNAVAILABLE = Code[EndpointMetadata]{
	1,
	"CONFIG_UNAVAILABLE",
	http.StatusServiceUnavailable,
}

var INDEX_UNAVAILABLE = Code[EndpointMetadata]{
	2,
	"INDEX_UNAVAILABLE",
	http.StatusServiceUnavailable,
}

var INVALID_REQUEST = Code[RequestMetadata]{3, "INVALID_REQUEST", http.StatusBadRequest}

var INSUFFICIENT_FUNDS = Code[FundsMetadata]{
	4,
	"INSUFFICIENT_FUNDS",
	http.StatusUnprocessableEntity,
}

var FEE_SCHEDULE_GAP = Code[FeeTierMetadata]{
	5,
	"FEE_SCHEDULE_GAP",
	http.StatusInternalServerError,
}

var ANCESTOR_NOT_FOUND = Code[AncestorMetadata]{6, "ANCESTOR_NOT_FOUND", http.StatusNotFound}

var ANCESTOR_FETCH_FAILED = Code[AncestorMetadata]{
	7,
	"ANCESTOR_FETCH_FAILED",
	http.StatusServiceUnavailable,
}

var SIGNING_FAILED = Code[SigningMetadata]{8, "SIGNING_FAILED", http.StatusInternalServerError}

var COSIGN_REJECTED = Code[CosignMetadata]{9, "COSIGN_REJECTED", http.StatusForbidden}

var COSIGN_UNAVAILABLE = Code[EndpointMetadata]{
	10,
	"COSIGN_UNAVAILABLE",
	http.StatusServiceUnavailable,
}

var BROADCAST_FAILED = Code[BroadcastMetadata]{11, "BROADCAST_FAILED", http.StatusBadGateway}

var SETTLEMENT_TIMEOUT = Code[TimeoutMetadata]{
	12,
	"SETTLEMENT_TIMEOUT",
	http.StatusGatewayTimeout,
}

// RejectReason extracts the cosign rejection sub-reason from err, if any.
func RejectReason(err error) (CosignRejectReason, bool) {
	var typed TypedError[CosignMetadata]
	if !errors.As(err, &typed) {
		return "", false
	}
	if typed.Code() != COSIGN_REJECTED.Code {
		return "", false
	}
	reason := CosignRejectReason(typed.Metadata()["reason"])
	if reason == "" {
		reason = CosignReasonUnknown
	}
	return reason, true
}
