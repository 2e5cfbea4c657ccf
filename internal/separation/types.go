package separation

import (
	"fmt"
	"strings"

	"github.com/farxc/separacao-pedidos/internal/apperr"
)

// Mode selects the merge rule applied to each (material, store) cell.
type Mode string

const (
	ModeCreate           Mode = "create"
	ModeReinforcement    Mode = "reinforcement"
	ModeRedistribution   Mode = "redistribution"
	ModeMelanciaOverride Mode = "melancia-override"
	ModeCut              Mode = "cut"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeCreate, ModeReinforcement, ModeRedistribution, ModeMelanciaOverride:
		return m, nil
	case "melancia":
		return ModeMelanciaOverride, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", apperr.ErrInputMalformed, s)
}

// Type tags of a material item. They pick the handling circuit in views.
const (
	TypeSeco       = "SECO"
	TypeFrio       = "FRIO"
	TypeOrganico   = "ORGANICO"
	TypeOvo        = "OVO"
	TypeReinforced = "REFORÇO"
)

var typeTags = map[string]bool{
	TypeSeco:       true,
	TypeFrio:       true,
	TypeOrganico:   true,
	TypeOvo:        true,
	TypeReinforced: true,
}

// ValidType reports whether t is a known type tag.
func ValidType(t string) bool {
	return typeTags[t]
}

// Region is the regional code a separation is scoped to.
type Region string

const (
	RegionCapital  Region = "CAPITAL"
	RegionInterior Region = "INTERIOR"
	RegionLitoral  Region = "LITORAL"
)

func ParseRegion(s string) (Region, error) {
	switch r := Region(strings.ToUpper(strings.TrimSpace(s))); r {
	case RegionCapital, RegionInterior, RegionLitoral:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown region %q", apperr.ErrInputMalformed, s)
}

// ChangeKind marks how a cell moved during an operation.
type ChangeKind string

const (
	ChangeNone          ChangeKind = ""
	ChangeAdded         ChangeKind = "added"
	ChangeIncreased     ChangeKind = "increased"
	ChangeRedistributed ChangeKind = "redistributed"
	ChangeOverridden    ChangeKind = "overridden"
	ChangeCut           ChangeKind = "cut"
)

type CellChange struct {
	Material string     `json:"material"`
	Store    string     `json:"store"`
	Before   int64      `json:"before"`
	After    int64      `json:"after"`
	Kind     ChangeKind `json:"kind"`
}

// ChangeReport summarizes one committed (or previewed) operation.
type ChangeReport struct {
	OperationID  string `json:"operation_id"`
	Mode         Mode   `json:"mode"`
	SeparationID int64  `json:"separation_id"`
	Preview      bool   `json:"preview,omitempty"`

	Processed     int `json:"processed"`
	New           int `json:"new"`
	Updated       int `json:"updated"`
	Redistributed int `json:"redistributed"`
	Skipped       int `json:"skipped"`

	NewMaterials           []string `json:"new_materials,omitempty"`
	UpdatedMaterials       []string `json:"updated_materials,omitempty"`
	RedistributedMaterials []string `json:"redistributed_materials,omitempty"`

	Cells          []CellChange        `json:"cells,omitempty"`
	Problems       []apperr.RowProblem `json:"problems,omitempty"`
	NotFoundStores []string            `json:"not_found_stores,omitempty"`
	Warnings       []string            `json:"warnings,omitempty"`
	Cut            *CutSummary         `json:"cut,omitempty"`

	TotalItems  int `json:"total_items"`
	TotalStores int `json:"total_stores"`
}

// CutMode selects how a cut reduces a material's cells.
type CutMode string

const (
	CutAll            CutMode = "all"
	CutSpecificStores CutMode = "specific-stores"
	CutPartial        CutMode = "partial"
)

// CutRequest targets one material of a separation.
type CutRequest struct {
	Mode         CutMode          `json:"mode" validate:"required,oneof=all specific-stores partial"`
	MaterialCode string           `json:"material_code" validate:"required"`
	Stores       []string         `json:"stores,omitempty" validate:"required_if=Mode specific-stores,dive,required"`
	Quantities   map[string]int64 `json:"quantities,omitempty" validate:"required_if=Mode partial,dive,gte=0"`
}

type StoreCut struct {
	Store  string `json:"store"`
	Before int64  `json:"before"`
	After  int64  `json:"after"`
	Cut    int64  `json:"cut"`
}

type CutSummary struct {
	MaterialCode   string     `json:"material_code"`
	Description    string     `json:"description"`
	Mode           CutMode    `json:"mode"`
	Stores         []StoreCut `json:"stores"`
	TotalCut       int64      `json:"total_cut"`
	StoresAffected int        `json:"stores_affected"`
}
