// Package separation holds the quantity reconciliation engine: it merges
// uploaded sheets into a separation's material by store matrix and cuts
// allocations, one transaction per operation.
package separation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/logger"
	"github.com/farxc/separacao-pedidos/internal/quantity"
	"github.com/farxc/separacao-pedidos/internal/sheet"
	"github.com/farxc/separacao-pedidos/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

const (
	DefaultBatchSize   = 100
	DefaultMaxProblems = 20

	// MaxBatchSize keeps one upsert statement (three bind parameters per cell)
	// under the Postgres limit of 65535 parameters.
	MaxBatchSize = 65535 / 3
)

// DefaultMelanciaCodes are the watermelon materials whose store quantities may
// be overridden directly.
var DefaultMelanciaCodes = []string{"1000071", "1000072", "1000073"}

type MaterialRegistry interface {
	LookupType(ctx context.Context, code string) (string, bool, error)
}

type StoreRegistry interface {
	ListStores(ctx context.Context) ([]store.StoreInfo, error)
}

type AuditSink interface {
	Record(ctx context.Context, entry *store.AuditEntry) error
}

type Config struct {
	BatchSize     int
	MaxProblems   int
	MelanciaCodes []string
}

type Engine struct {
	tx        store.Transactor
	materials MaterialRegistry
	stores    StoreRegistry
	audit     AuditSink
	log       *logger.Logger
	cfg       Config
	melancia  map[string]bool
}

// NewEngine wires the engine. materials, stores and audit may be nil: without a
// material registry new items get SECO (REFORÇO for reinforcement), without a
// store registry sheet store codes are not validated, without a sink nothing
// is audited.
func NewEngine(tx store.Transactor, materials MaterialRegistry, stores StoreRegistry, audit AuditSink, appLogger *logger.Logger, cfg Config) *Engine {
	if appLogger == nil {
		appLogger = logger.Discard()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		appLogger.Warn("Engine", "Batch size capped: requested=%d max=%d", cfg.BatchSize, MaxBatchSize)
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.MaxProblems <= 0 {
		cfg.MaxProblems = DefaultMaxProblems
	}
	if cfg.MelanciaCodes == nil {
		cfg.MelanciaCodes = DefaultMelanciaCodes
	}

	melancia := make(map[string]bool, len(cfg.MelanciaCodes))
	for _, code := range cfg.MelanciaCodes {
		melancia[strings.TrimSpace(code)] = true
	}

	return &Engine{
		tx:        tx,
		materials: materials,
		stores:    stores,
		audit:     audit,
		log:       appLogger,
		cfg:       cfg,
		melancia:  melancia,
	}
}

// IsMelancia reports whether code may be used with OverrideMelancia.
func (e *Engine) IsMelancia(code string) bool {
	return e.melancia[code]
}

type CreateInput struct {
	OwnerID  string
	Region   Region
	Date     time.Time
	FileName string
	Grid     sheet.Grid
}

// Create opens a new active separation for the owner from a full sheet.
func (e *Engine) Create(ctx context.Context, actorID string, in CreateInput) (*ChangeReport, error) {
	const component = "Engine"

	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", apperr.ErrInputMalformed)
	}
	region, err := ParseRegion(string(in.Region))
	if err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("%w: separation date is required", apperr.ErrInputMalformed)
	}

	rep := e.newReport(ModeCreate)
	plan, err := e.prepare(ctx, in.Grid, rep)
	if err != nil {
		return nil, err
	}

	err = e.tx.WithTx(ctx, func(tx store.Tx) error {
		active, err := tx.ActiveSeparationForOwner(ctx, in.OwnerID)
		if err == nil {
			return fmt.Errorf("owner %s already has separation %d: %w", in.OwnerID, active.ID, apperr.ErrActiveSeparationExists)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		sep := &store.Separation{
			OwnerID:        in.OwnerID,
			Region:         string(region),
			SeparationDate: in.Date,
			Status:         store.StatusActive,
			FileName:       in.FileName,
		}
		if err := tx.InsertSeparation(ctx, sep); err != nil {
			return err
		}
		rep.SeparationID = sep.ID

		return e.apply(ctx, tx, ModeCreate, sep.ID, plan, rep)
	})
	if err != nil {
		e.log.Warn(component, "Create failed: owner=%s error=%v", in.OwnerID, err)
		return nil, err
	}

	e.log.Info(component, "Separation created: id=%d owner=%s items=%d stores=%d skipped=%d", rep.SeparationID, in.OwnerID, rep.TotalItems, rep.TotalStores, rep.Skipped)
	e.record(ctx, actorID, rep)
	return rep, nil
}

// Reconcile merges a sheet into an existing separation using the reinforcement
// or redistribution rule.
func (e *Engine) Reconcile(ctx context.Context, actorID string, separationID int64, mode Mode, grid sheet.Grid) (*ChangeReport, error) {
	const component = "Engine"

	if mode != ModeReinforcement && mode != ModeRedistribution {
		return nil, fmt.Errorf("%w: mode %q cannot reconcile a sheet", apperr.ErrInputMalformed, mode)
	}

	rep := e.newReport(mode)
	rep.SeparationID = separationID
	plan, err := e.prepare(ctx, grid, rep)
	if err != nil {
		return nil, err
	}

	err = e.tx.WithTx(ctx, func(tx store.Tx) error {
		if _, err := lockActive(ctx, tx, separationID); err != nil {
			return err
		}
		return e.apply(ctx, tx, mode, separationID, plan, rep)
	})
	if err != nil {
		e.log.Warn(component, "Reconciliation failed: mode=%s separation=%d error=%v", mode, separationID, err)
		return nil, err
	}

	e.log.Info(component, "Reconciliation committed: mode=%s separation=%d processed=%d new=%d updated=%d redistributed=%d skipped=%d", mode, separationID, rep.Processed, rep.New, rep.Updated, rep.Redistributed, rep.Skipped)
	e.record(ctx, actorID, rep)
	return rep, nil
}

// OverrideMelancia sets the store quantities of one melancia material from a
// (store, quantity) list. Stores the material does not already hold are
// reported and left out.
func (e *Engine) OverrideMelancia(ctx context.Context, actorID string, separationID int64, materialCode string, grid sheet.Grid) (*ChangeReport, error) {
	const component = "Engine"

	materialCode = strings.TrimSpace(materialCode)
	if !e.melancia[materialCode] {
		return nil, fmt.Errorf("%w: material %s is not a melancia material", apperr.ErrInputMalformed, materialCode)
	}

	entries, problems, err := sheet.ParseCodeQuantities(grid)
	if err != nil {
		return nil, err
	}

	rep := e.newReport(ModeMelanciaOverride)
	rep.SeparationID = separationID
	for _, p := range problems {
		e.addProblem(rep, p, true)
	}

	err = e.tx.WithTx(ctx, func(tx store.Tx) error {
		if _, err := lockActive(ctx, tx, separationID); err != nil {
			return err
		}
		item, err := tx.Material(ctx, separationID, materialCode)
		if err != nil {
			return err
		}

		b := e.newBatcher(tx)
		changed := false
		for _, entry := range entries {
			before, known, err := tx.GetCell(ctx, item.ID, entry.Code)
			if err != nil {
				return err
			}
			if !known {
				rep.NotFoundStores = append(rep.NotFoundStores, entry.Code)
				e.addProblem(rep, apperr.RowProblem{
					Row:      entry.Row,
					Material: materialCode,
					Store:    entry.Code,
					Kind:     apperr.KindStoreUnknownForOverride,
					Reason:   "store holds no quantity for this material",
				}, true)
				continue
			}

			after, kind := merge(ModeMelanciaOverride, before, entry.Quantity, true)
			if kind == ChangeNone {
				continue
			}
			changed = true
			rep.Cells = append(rep.Cells, CellChange{Material: materialCode, Store: entry.Code, Before: before, After: after, Kind: kind})
			if err := b.add(ctx, store.CellWrite{ItemID: item.ID, StoreCode: entry.Code, Quantity: after}); err != nil {
				return err
			}
		}

		rep.Processed = 1
		if changed {
			rep.Updated = 1
			rep.UpdatedMaterials = []string{materialCode}
		}
		return e.finish(ctx, tx, separationID, b, rep)
	})
	if err != nil {
		e.log.Warn(component, "Melancia override failed: separation=%d material=%s error=%v", separationID, materialCode, err)
		return nil, err
	}

	if len(rep.NotFoundStores) > 0 {
		e.log.Warn(component, "Melancia override ignored unknown stores: separation=%d material=%s stores=%v", separationID, materialCode, rep.NotFoundStores)
	}
	e.log.Info(component, "Melancia override committed: separation=%d material=%s cells=%d", separationID, materialCode, len(rep.Cells))
	e.record(ctx, actorID, rep)
	return rep, nil
}

// sheetPlan is a parsed sheet with its store columns checked against master data.
type sheetPlan struct {
	parsed   *sheet.ParsedSheet
	declared map[string]bool
	excluded map[string]bool
}

func (e *Engine) prepare(ctx context.Context, grid sheet.Grid, rep *ChangeReport) (*sheetPlan, error) {
	parsed, err := sheet.Parse(grid)
	if err != nil {
		return nil, err
	}

	for _, p := range parsed.Problems {
		e.addProblem(rep, p, p.Row > 1)
	}
	if parsed.CoercedCells > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%d unreadable quantity cells were treated as 0", parsed.CoercedCells))
	}

	known, err := e.knownStores(ctx)
	if err != nil {
		return nil, err
	}

	plan := &sheetPlan{
		parsed:   parsed,
		declared: make(map[string]bool, len(parsed.Stores)),
		excluded: make(map[string]bool),
	}
	for _, code := range parsed.Stores {
		if known != nil && !known[code] {
			plan.excluded[code] = true
			e.addProblem(rep, apperr.RowProblem{
				Row:    1,
				Store:  code,
				Kind:   apperr.KindInputMalformed,
				Reason: "store not found in master data, column ignored",
			}, false)
			continue
		}
		plan.declared[code] = true
	}
	if len(plan.declared) == 0 {
		return nil, fmt.Errorf("%w: every store column was rejected", apperr.ErrNoStoresDeclared)
	}
	return plan, nil
}

// apply runs the merge rule over every sheet material and writes the result.
func (e *Engine) apply(ctx context.Context, tx store.Tx, mode Mode, separationID int64, plan *sheetPlan, rep *ChangeReport) error {
	const component = "Engine"

	b := e.newBatcher(tx)
	for i, mat := range plan.parsed.Materials {
		values := plan.parsed.Values(i)

		var (
			old     map[string]int64
			created bool
		)
		item, err := tx.Material(ctx, separationID, mat.Code)
		switch {
		case err == nil:
			if old, err = tx.CellsForMaterial(ctx, item.ID); err != nil {
				return err
			}
		case errors.Is(err, store.ErrNotFound):
			typeTag, ok, err := e.typeFor(ctx, mode, mat.Code)
			if err != nil {
				return err
			}
			if !ok {
				e.log.Warn(component, "Material not in registry, row skipped: row=%d material=%s", mat.Row, mat.Code)
				e.addProblem(rep, apperr.RowProblem{
					Row:      mat.Row,
					Material: mat.Code,
					Kind:     apperr.KindMaterialNotInRegistry,
					Reason:   "material not found in master registry",
				}, true)
				continue
			}
			if item, created, err = tx.EnsureMaterial(ctx, separationID, mat.Code, mat.Description, typeTag); err != nil {
				return err
			}
			old = map[string]int64{}
		default:
			return err
		}

		rep.Processed++
		changed, redistributed := false, false
		for _, storeCode := range storeOrder(plan, old) {
			before := old[storeCode]
			sheetQty, inSheet := values[storeCode]
			after, kind := merge(mode, before, sheetQty, inSheet && plan.declared[storeCode])
			if kind == ChangeNone {
				continue
			}

			if kind == ChangeIncreased {
				if _, capped := quantity.Add(before, sheetQty); capped {
					e.log.Warn(component, "Reinforcement capped: material=%s store=%s before=%d sheet=%d", mat.Code, storeCode, before, sheetQty)
					e.addProblem(rep, apperr.RowProblem{
						Row:      mat.Row,
						Material: mat.Code,
						Store:    storeCode,
						Kind:     apperr.KindInputMalformed,
						Reason:   fmt.Sprintf("sum %d + %d capped at %d", before, sheetQty, quantity.Max),
					}, false)
				}
			}

			changed = true
			if kind == ChangeRedistributed {
				redistributed = true
			}
			rep.Cells = append(rep.Cells, CellChange{Material: mat.Code, Store: storeCode, Before: before, After: after, Kind: kind})
			if after != before {
				if err := b.add(ctx, store.CellWrite{ItemID: item.ID, StoreCode: storeCode, Quantity: after}); err != nil {
					return err
				}
			}
		}

		switch {
		case created:
			rep.New++
			rep.NewMaterials = append(rep.NewMaterials, mat.Code)
		case redistributed:
			rep.Redistributed++
			rep.RedistributedMaterials = append(rep.RedistributedMaterials, mat.Code)
		case changed:
			rep.Updated++
			rep.UpdatedMaterials = append(rep.UpdatedMaterials, mat.Code)
		}
	}

	if rep.Processed == 0 {
		return fmt.Errorf("%w: no valid material rows, %d skipped", apperr.ErrInputMalformed, rep.Skipped)
	}
	return e.finish(ctx, tx, separationID, b, rep)
}

// storeOrder lists the sheet's stores followed by the stores the material
// already holds that the sheet omits.
func storeOrder(plan *sheetPlan, old map[string]int64) []string {
	order := make([]string, 0, len(plan.parsed.Stores)+len(old))
	for _, code := range plan.parsed.Stores {
		if plan.declared[code] {
			order = append(order, code)
		}
	}

	var extra []string
	for code := range old {
		if !plan.declared[code] && !plan.excluded[code] {
			extra = append(extra, code)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

// typeFor picks the type tag of a material created by mode. The registry
// wins; reinforcement falls back to REFORÇO, other modes skip the row.
func (e *Engine) typeFor(ctx context.Context, mode Mode, code string) (string, bool, error) {
	if e.materials == nil {
		if mode == ModeReinforcement {
			return TypeReinforced, true, nil
		}
		return TypeSeco, true, nil
	}

	typeTag, found, err := e.materials.LookupType(ctx, code)
	if err != nil {
		return "", false, err
	}
	if found && ValidType(typeTag) {
		return typeTag, true, nil
	}
	if mode == ModeReinforcement {
		return TypeReinforced, true, nil
	}
	return "", false, nil
}

func (e *Engine) knownStores(ctx context.Context) (map[string]bool, error) {
	if e.stores == nil {
		return nil, nil
	}
	list, err := e.stores.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	known := make(map[string]bool, len(list))
	for _, s := range list {
		known[s.Prefix] = true
	}
	return known, nil
}

func lockActive(ctx context.Context, tx store.Tx, separationID int64) (*store.Separation, error) {
	sep, err := tx.SeparationForUpdate(ctx, separationID)
	if err != nil {
		return nil, err
	}
	if sep.Status != store.StatusActive {
		return nil, fmt.Errorf("%w: separation %d is %s", apperr.ErrInputMalformed, separationID, sep.Status)
	}
	return sep, nil
}

// finish flushes pending writes and refreshes the cached totals.
func (e *Engine) finish(ctx context.Context, tx store.Tx, separationID int64, b *batcher, rep *ChangeReport) error {
	if err := b.flush(ctx); err != nil {
		return err
	}
	items, stores, err := tx.RefreshTotals(ctx, separationID)
	if err != nil {
		return err
	}
	rep.TotalItems = items
	rep.TotalStores = stores
	return nil
}

func (e *Engine) newReport(mode Mode) *ChangeReport {
	return &ChangeReport{OperationID: uuid.NewString(), Mode: mode}
}

// addProblem keeps the first MaxProblems problems; skipped rows are counted in full.
func (e *Engine) addProblem(rep *ChangeReport, p apperr.RowProblem, skipped bool) {
	if skipped {
		rep.Skipped++
	}
	if len(rep.Problems) < e.cfg.MaxProblems {
		rep.Problems = append(rep.Problems, p)
	}
}

// record sends the report to the audit sink. Failures become report warnings.
func (e *Engine) record(ctx context.Context, actorID string, rep *ChangeReport) {
	const component = "Audit"

	if e.audit == nil {
		return
	}

	payload, err := json.Marshal(rep)
	if err != nil {
		e.log.Error(component, "Failed to encode change report: operation=%s error=%v", rep.OperationID, err)
		rep.Warnings = append(rep.Warnings, "audit log not recorded: "+err.Error())
		return
	}

	entry := &store.AuditEntry{
		SeparationID: rep.SeparationID,
		ActorID:      actorID,
		Action:       string(rep.Mode),
		Details:      fmt.Sprintf("processed=%d new=%d updated=%d redistributed=%d skipped=%d", rep.Processed, rep.New, rep.Updated, rep.Redistributed, rep.Skipped),
		Report:       types.JSONText(payload),
	}
	if err := e.audit.Record(ctx, entry); err != nil {
		e.log.Warn(component, "Failed to record audit entry: operation=%s separation=%d error=%v", rep.OperationID, rep.SeparationID, err)
		rep.Warnings = append(rep.Warnings, "audit log not recorded: "+err.Error())
	}
}
