package view

import "github.com/farxc/separacao-pedidos/internal/store"

type ZoneColumn struct {
	Zone  string `json:"zone"`
	Total int64  `json:"total"`
}

type ZoneRow struct {
	MaterialCode string  `json:"material_code"`
	Description  string  `json:"description"`
	Type         string  `json:"type"`
	Quantities   []int64 `json:"quantities"`
	Total        int64   `json:"total"`
}

// ZoneView is the pre-separation report: one column per zone.
type ZoneView struct {
	Circuit Circuit      `json:"circuit"`
	Zones   []ZoneColumn `json:"zones"`
	Rows    []ZoneRow    `json:"rows"`
	Total   int64        `json:"total"`
}

type StoreColumn struct {
	Prefix  string `json:"prefix"`
	Name    string `json:"name,omitempty"`
	Zone    string `json:"zone"`
	Subzone string `json:"subzone,omitempty"`
	Total   int64  `json:"total"`
}

type SubzoneGroup struct {
	Subzone string   `json:"subzone"`
	Stores  []string `json:"stores"`
	Total   int64    `json:"total"`
}

type ZoneGroup struct {
	Zone     string         `json:"zone"`
	Subzones []SubzoneGroup `json:"subzones"`
	Total    int64          `json:"total"`
}

type StoreRow struct {
	MaterialCode string  `json:"material_code"`
	Description  string  `json:"description"`
	Type         string  `json:"type"`
	Quantities   []int64 `json:"quantities"`
	ZoneTotals   []int64 `json:"zone_totals"`
	Total        int64   `json:"total"`
}

// StoreView is the separation report: one column per store, grouped by zone
// and subzone, with per-zone totals on every row.
type StoreView struct {
	Circuit Circuit       `json:"circuit"`
	Zones   []ZoneGroup   `json:"zones"`
	Stores  []StoreColumn `json:"stores"`
	Rows    []StoreRow    `json:"rows"`
	Total   int64         `json:"total"`
}

func BuildZoneView(cells []store.Cell, stores []store.StoreInfo, f Filter) *ZoneView {
	p := project(cells, stores, f)
	v := &ZoneView{Circuit: p.circuit, Zones: []ZoneColumn{}, Rows: []ZoneRow{}}

	zoneIdx := make(map[string]int)
	storeZone := make(map[string]int, len(p.stores))
	for _, s := range p.stores {
		idx, ok := zoneIdx[s.zone]
		if !ok {
			idx = len(v.Zones)
			zoneIdx[s.zone] = idx
			v.Zones = append(v.Zones, ZoneColumn{Zone: s.zone})
		}
		storeZone[s.prefix] = idx
		v.Zones[idx].Total += p.storeSum[s.prefix]
	}

	for _, m := range p.materials {
		row := ZoneRow{MaterialCode: m.code, Description: m.description, Type: m.typeTag, Quantities: make([]int64, len(v.Zones))}
		for storeCode, q := range m.byStore {
			row.Quantities[storeZone[storeCode]] += q
			row.Total += q
		}
		v.Rows = append(v.Rows, row)
		v.Total += row.Total
	}
	return v
}

func BuildStoreView(cells []store.Cell, stores []store.StoreInfo, f Filter) *StoreView {
	p := project(cells, stores, f)
	v := &StoreView{Circuit: p.circuit, Zones: []ZoneGroup{}, Stores: []StoreColumn{}, Rows: []StoreRow{}}

	storeIdx := make(map[string]int, len(p.stores))
	storeZone := make(map[string]int, len(p.stores))
	for _, s := range p.stores {
		total := p.storeSum[s.prefix]
		storeIdx[s.prefix] = len(v.Stores)
		v.Stores = append(v.Stores, StoreColumn{Prefix: s.prefix, Name: s.name, Zone: s.zone, Subzone: s.subzone, Total: total})

		// placements arrive grouped, so a new group starts whenever zone or subzone changes
		if n := len(v.Zones); n == 0 || v.Zones[n-1].Zone != s.zone {
			v.Zones = append(v.Zones, ZoneGroup{Zone: s.zone})
		}
		zone := &v.Zones[len(v.Zones)-1]
		if n := len(zone.Subzones); n == 0 || zone.Subzones[n-1].Subzone != s.subzone {
			zone.Subzones = append(zone.Subzones, SubzoneGroup{Subzone: s.subzone})
		}
		sub := &zone.Subzones[len(zone.Subzones)-1]
		sub.Stores = append(sub.Stores, s.prefix)
		sub.Total += total
		zone.Total += total
		storeZone[s.prefix] = len(v.Zones) - 1
	}

	for _, m := range p.materials {
		row := StoreRow{
			MaterialCode: m.code,
			Description:  m.description,
			Type:         m.typeTag,
			Quantities:   make([]int64, len(v.Stores)),
			ZoneTotals:   make([]int64, len(v.Zones)),
		}
		for storeCode, q := range m.byStore {
			row.Quantities[storeIdx[storeCode]] += q
			row.ZoneTotals[storeZone[storeCode]] += q
			row.Total += q
		}
		v.Rows = append(v.Rows, row)
		v.Total += row.Total
	}
	return v
}
