package domain

import (
	"strings"
	"time"
)

// ZeroOwner is the owner value the registry returns for a hash that was
// never registered.
const ZeroOwner = "0x0000000000000000000000000000000000000000"

type LicenseRecord struct {
	Owner        string
	LicenseID    string
	RegisteredAt uint64
	Revoked      bool
}

// Registered reports whether the record carries a non-sentinel owner.
func (r LicenseRecord) Registered() bool {
	return !IsZeroOwner(r.Owner)
}

func IsZeroOwner(owner string) bool {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(owner, "0x"), "0X")
	return strings.Trim(trimmed, "0") == ""
}

// LicenseStatus is the derived view returned to callers. It is computed on
// every query and never cached.
//
// A degraded status means a registry read failed at the transport layer:
// exists and valid are then false even though a license may exist.
type LicenseStatus struct {
	Exists       bool    `json:"exists"`
	Valid        bool    `json:"valid"`
	Owner        *string `json:"owner"`
	LicenseID    *string `json:"license"`
	RegisteredAt *string `json:"registered_at"`
	Revoked      bool    `json:"revoked"`
	Revokable    bool    `json:"revokable"`
	Degraded     bool    `json:"degraded,omitempty"`
	Fault        string  `json:"fault,omitempty"`
}

func AbsentStatus() LicenseStatus {
	return LicenseStatus{}
}

// FormatRegisteredAt renders a registry timestamp as RFC 3339 UTC. Zero means
// absent.
func FormatRegisteredAt(ts uint64) *string {
	if ts == 0 {
		return nil
	}
	formatted := time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
	return &formatted
}

type LookupKind string

const (
	LookupFound    LookupKind = "found"
	LookupNotFound LookupKind = "not_found"
	LookupFault    LookupKind = "fault"
)

type NotFoundReason string

const (
	NotFoundUnregistered NotFoundReason = "unregistered"
	NotFoundReverted     NotFoundReason = "reverted"
)

// Lookup is the outcome of a single registry read. Exactly one of Record
// (Found), Reason (NotFound) or Err (Fault) is meaningful.
type Lookup struct {
	Kind   LookupKind
	Record LicenseRecord
	Reason NotFoundReason
	Err    error
}

func Found(record LicenseRecord) Lookup {
	return Lookup{Kind: LookupFound, Record: record}
}

func NotFound(reason NotFoundReason) Lookup {
	return Lookup{Kind: LookupNotFound, Reason: reason}
}

func Fault(err error) Lookup {
	return Lookup{Kind: LookupFault, Err: err}
}

func (l Lookup) IsFound() bool { return l.Kind == LookupFound }

func (l Lookup) IsFault() bool { return l.Kind == LookupFault }

// Get returns the record and true only for Found lookups.
func (l Lookup) Get() (LicenseRecord, bool) {
	if l.Kind != LookupFound {
		return LicenseRecord{}, false
	}
	return l.Record, true
}

type TxAction string

const (
	TxActionRegister TxAction = "register"
	TxActionRevoke   TxAction = "revoke"
)

const (
	TxStatusSubmitted = "submitted"
	TxStatusMined     = "mined"
	TxStatusFailed    = "failed"
)

type TxReceipt struct {
	Hash        ContentHash `json:"content_hash"`
	Action      TxAction    `json:"action"`
	LicenseID   string      `json:"license,omitempty"`
	TxHash      string      `json:"tx_hash,omitempty"`
	Status      string      `json:"status"`
	BlockNumber uint64      `json:"block_number,omitempty"`
	From        string      `json:"from,omitempty"`
}
