// Package apperr defines the error kinds shared by the reconciliation engine,
// the stores and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInputMalformed          = errors.New("input malformed")
	ErrActiveSeparationExists  = errors.New("active separation already exists")
	ErrMaterialNotInRegistry   = errors.New("material not in registry")
	ErrExcessiveCutQuantity    = errors.New("cut quantity exceeds current quantity")
	ErrStorageFailure          = errors.New("storage failure")
	ErrStoreUnknownForOverride = errors.New("store unknown for override")
	ErrNotFound                = errors.New("not found")

	ErrEmptySheet       = fmt.Errorf("%w: sheet has no material rows", ErrInputMalformed)
	ErrNoStoresDeclared = fmt.Errorf("%w: sheet declares no store columns", ErrInputMalformed)
)

// Kind is the stable name of an error class, as exposed to clients.
type Kind string

const (
	KindInputMalformed          Kind = "InputMalformed"
	KindActiveSeparationExists  Kind = "ActiveSeparationExists"
	KindMaterialNotInRegistry   Kind = "MaterialNotInRegistry"
	KindExcessiveCutQuantity    Kind = "ExcessiveCutQuantity"
	KindStorageFailure          Kind = "StorageFailure"
	KindStoreUnknownForOverride Kind = "StoreUnknownForOverride"
	KindNotFound                Kind = "NotFound"
	KindUnknown                 Kind = "Unknown"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrActiveSeparationExists, KindActiveSeparationExists},
	{ErrExcessiveCutQuantity, KindExcessiveCutQuantity},
	{ErrMaterialNotInRegistry, KindMaterialNotInRegistry},
	{ErrStoreUnknownForOverride, KindStoreUnknownForOverride},
	{ErrNotFound, KindNotFound},
	{ErrInputMalformed, KindInputMalformed},
	{ErrStorageFailure, KindStorageFailure},
}

// KindOf classifies err by the first sentinel it wraps.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// Storage wraps a persistence error so it classifies as StorageFailure while
// keeping the driver error in the chain.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

// RowProblem describes one row or cell that was skipped without aborting the operation.
type RowProblem struct {
	Row      int    `json:"row,omitempty"`
	Material string `json:"material,omitempty"`
	Store    string `json:"store,omitempty"`
	Kind     Kind   `json:"kind"`
	Reason   string `json:"reason"`
}

func (p RowProblem) String() string {
	switch {
	case p.Store != "" && p.Material != "":
		return fmt.Sprintf("row %d material %s store %s: %s", p.Row, p.Material, p.Store, p.Reason)
	case p.Material != "":
		return fmt.Sprintf("row %d material %s: %s", p.Row, p.Material, p.Reason)
	case p.Store != "":
		return fmt.Sprintf("store %s: %s", p.Store, p.Reason)
	default:
		return fmt.Sprintf("row %d: %s", p.Row, p.Reason)
	}
}
