// Package view projects a separation matrix onto zone and store columns for
// the pre-separation and separation reports. Nothing here writes; every view
// is rebuilt from the committed cells on request.
package view

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/store"
)

// Circuit selects which zone fields of the store master data group the columns.
type Circuit string

const (
	CircuitSeco Circuit = "SECO"
	CircuitFrio Circuit = "FRIO"
)

// Unzoned groups stores missing from master data. It sorts after every real zone.
const Unzoned = "SEM ZONA"

type Filter struct {
	// Types keeps only materials with these type tags. Empty keeps all.
	Types []string
	// Circuit overrides the circuit picked from Types.
	Circuit Circuit
}

// ParseFilter reads a comma-separated type list and an optional circuit.
func ParseFilter(types, circuit string) (Filter, error) {
	var f Filter
	for _, t := range strings.Split(types, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			f.Types = append(f.Types, t)
		}
	}
	switch c := Circuit(strings.ToUpper(strings.TrimSpace(circuit))); c {
	case "":
	case CircuitSeco, CircuitFrio:
		f.Circuit = c
	default:
		return Filter{}, fmt.Errorf("%w: unknown circuit %q", apperr.ErrInputMalformed, circuit)
	}
	return f, nil
}

// circuit defaults to FRIO only when the filter is exactly FRIO.
func (f Filter) circuit() Circuit {
	if f.Circuit != "" {
		return f.Circuit
	}
	if len(f.Types) == 1 && f.Types[0] == "FRIO" {
		return CircuitFrio
	}
	return CircuitSeco
}

type placement struct {
	prefix  string
	name    string
	zone    string
	subzone string
	order   int
	unzoned bool
}

type material struct {
	code        string
	description string
	typeTag     string
	byStore     map[string]int64
	total       int64
}

// projection is the filtered matrix with every column placed.
type projection struct {
	circuit   Circuit
	materials []*material
	stores    []placement
	storeSum  map[string]int64
}

func project(cells []store.Cell, stores []store.StoreInfo, f Filter) *projection {
	circuit := f.circuit()
	allowed := make(map[string]bool, len(f.Types))
	for _, t := range f.Types {
		allowed[t] = true
	}

	master := make(map[string]store.StoreInfo, len(stores))
	for _, s := range stores {
		master[s.Prefix] = s
	}

	p := &projection{circuit: circuit, storeSum: make(map[string]int64)}
	byCode := make(map[string]*material)
	for _, c := range cells {
		if c.Quantity <= 0 {
			continue
		}
		if len(allowed) > 0 && !allowed[c.TypeSeparation] {
			continue
		}
		m, ok := byCode[c.MaterialCode]
		if !ok {
			m = &material{code: c.MaterialCode, description: c.Description, typeTag: c.TypeSeparation, byStore: make(map[string]int64)}
			byCode[c.MaterialCode] = m
		}
		m.byStore[c.StoreCode] += c.Quantity
		m.total += c.Quantity
		p.storeSum[c.StoreCode] += c.Quantity
	}

	for _, m := range byCode {
		if m.total > 0 {
			p.materials = append(p.materials, m)
		}
	}
	sort.Slice(p.materials, func(i, j int) bool {
		a, b := p.materials[i], p.materials[j]
		if a.description != b.description {
			return a.description < b.description
		}
		return a.code < b.code
	})

	for code, total := range p.storeSum {
		if total > 0 {
			p.stores = append(p.stores, place(code, master, circuit))
		}
	}
	sortPlacements(p.stores)
	return p
}

func place(code string, master map[string]store.StoreInfo, circuit Circuit) placement {
	info, ok := master[code]
	if !ok {
		return placement{prefix: code, zone: Unzoned, order: math.MaxInt, unzoned: true}
	}

	pl := placement{prefix: code, name: info.Name, zone: info.ZonaSeco, subzone: info.SubzonaSeco, order: info.OrdemSeco}
	if circuit == CircuitFrio {
		pl.zone, pl.subzone, pl.order = info.ZonaFrio, info.SubzonaFrio, info.OrdemFrio
	}
	if strings.TrimSpace(pl.zone) == "" {
		pl.zone = Unzoned
		pl.unzoned = true
	}
	return pl
}

// sortPlacements orders zones, then subzones inside a zone, by the lowest
// store order they contain, then stores by order and prefix.
func sortPlacements(stores []placement) {
	zoneMin := make(map[string]int)
	subMin := make(map[[2]string]int)
	for _, s := range stores {
		if v, ok := zoneMin[s.zone]; !ok || s.order < v {
			zoneMin[s.zone] = s.order
		}
		key := [2]string{s.zone, s.subzone}
		if v, ok := subMin[key]; !ok || s.order < v {
			subMin[key] = s.order
		}
	}

	sort.SliceStable(stores, func(i, j int) bool {
		a, b := stores[i], stores[j]
		if a.unzoned != b.unzoned {
			return !a.unzoned
		}
		if a.zone != b.zone {
			if zoneMin[a.zone] != zoneMin[b.zone] {
				return zoneMin[a.zone] < zoneMin[b.zone]
			}
			return a.zone < b.zone
		}
		ka, kb := [2]string{a.zone, a.subzone}, [2]string{b.zone, b.subzone}
		if a.subzone != b.subzone {
			if subMin[ka] != subMin[kb] {
				return subMin[ka] < subMin[kb]
			}
			return a.subzone < b.subzone
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.prefix < b.prefix
	})
}
