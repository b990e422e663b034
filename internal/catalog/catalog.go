// Package catalog models the remotely tunable rule set driving estimation:
// the table of inventoriable item kinds with their unit volumes, and the
// named productivity and pricing constants.
package catalog

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	_ "embed"
)

//go:embed defaults.yml
var defaultItemsYAML []byte

// ItemKind is one inventoriable kind of object. Identity is ID; UnitVolume
// is in cubic meters.
type ItemKind struct {
	ID         string  `yaml:"id" json:"id"`
	Name       string  `yaml:"name" json:"name"`
	Category   string  `yaml:"category" json:"category"`
	UnitVolume float64 `yaml:"vol" json:"vol"`
}

// Params are the tunable cost and productivity constants. Productivity rates
// are in cubic meters per person per day, capacities in cubic meters, money
// in whole currency units except the per-km and per-m3 rates.
type Params struct {
	ProdStd    float64 `json:"prod_std"`
	ProdEasy   float64 `json:"prod_easy"`
	ProdHard   float64 `json:"prod_hard"`
	VanCap     float64 `json:"van_cap"`
	TruckCap   float64 `json:"truck_cap"`
	VanDay     float64 `json:"van_day"`
	VanHalf    float64 `json:"van_half"`
	TruckDay   float64 `json:"truck_day"`
	TruckHalf  float64 `json:"truck_half"`
	KmIncluded float64 `json:"km_inc"`
	KmVan      float64 `json:"km_van"`
	KmTruck    float64 `json:"km_truck"`
	ManDay     float64 `json:"man_day"`
	MatRate    float64 `json:"mat_rate"`
}

// DefaultParams returns the built-in constants used whenever the remote
// config is unavailable or omits a value.
func DefaultParams() Params {
	return Params{
		ProdStd:    7,
		ProdEasy:   9,
		ProdHard:   5,
		VanCap:     12,
		TruckCap:   20,
		VanDay:     150,
		VanHalf:    90,
		TruckDay:   250,
		TruckHalf:  150,
		KmIncluded: 50,
		KmVan:      0.5,
		KmTruck:    0.8,
		ManDay:     400,
		MatRate:    5,
	}
}

// Catalog is the loaded rule set. Items keep catalog order; lookups go
// through an id index, grouping by category is a derived view.
type Catalog struct {
	Items  []ItemKind
	Params Params

	index map[string]int
}

// CategoryGroup is the derived per-category view of the item table.
type CategoryGroup struct {
	Category string
	Items    []ItemKind
}

// ErrBadPayload marks a remote config response that failed schema checks.
var ErrBadPayload = errors.New("malformed config payload")

// Default returns the built-in catalog. It panics only if the embedded item
// table is itself broken, which a unit test pins down.
func Default() *Catalog {
	var doc struct {
		Items []ItemKind `yaml:"items"`
	}
	if err := yaml.Unmarshal(defaultItemsYAML, &doc); err != nil {
		panic(fmt.Sprintf("embedded default catalog: %v", err))
	}
	c := &Catalog{Items: doc.Items, Params: DefaultParams()}
	c.buildIndex()
	return c
}

// ParseRemote decodes a remote config response. The expected envelope is
// {"status":"success","data":{"items":{cat:[{id,name,vol}...]},"params":{...}}}.
// Schema violations return ErrBadPayload so the caller can fall back to
// Default() atomically; there is no partial merge of remote and default
// items. Individual params fall back per key when absent or non-numeric.
func ParseRemote(body []byte) (*Catalog, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrBadPayload)
	}
	root := gjson.ParseBytes(body)
	if root.Get("status").String() != "success" {
		return nil, fmt.Errorf("%w: status %q", ErrBadPayload, root.Get("status").String())
	}
	items := root.Get("data.items")
	params := root.Get("data.params")
	if !items.IsObject() {
		return nil, fmt.Errorf("%w: missing items table", ErrBadPayload)
	}
	if !params.IsObject() {
		return nil, fmt.Errorf("%w: missing params table", ErrBadPayload)
	}

	c := &Catalog{Params: DefaultParams()}
	var itemErr error
	items.ForEach(func(category, list gjson.Result) bool {
		if !list.IsArray() {
			itemErr = fmt.Errorf("%w: category %q is not an array", ErrBadPayload, category.String())
			return false
		}
		list.ForEach(func(_, it gjson.Result) bool {
			kind := ItemKind{
				ID:         it.Get("id").String(),
				Name:       it.Get("name").String(),
				Category:   category.String(),
				UnitVolume: it.Get("vol").Float(),
			}
			if kind.ID == "" || kind.UnitVolume <= 0 {
				itemErr = fmt.Errorf("%w: bad item in category %q", ErrBadPayload, category.String())
				return false
			}
			c.Items = append(c.Items, kind)
			return true
		})
		return itemErr == nil
	})
	if itemErr != nil {
		return nil, itemErr
	}

	overrideParams(&c.Params, params)
	c.buildIndex()
	return c, nil
}

// overrideParams copies recognized numeric values over the defaults. A key
// that is absent or non-numeric keeps its default.
func overrideParams(p *Params, params gjson.Result) {
	assign := func(key string, dst *float64) {
		v := params.Get(key)
		if v.Type == gjson.Number {
			*dst = v.Float()
		}
	}
	assign("prod_std", &p.ProdStd)
	assign("prod_easy", &p.ProdEasy)
	assign("prod_hard", &p.ProdHard)
	assign("van_cap", &p.VanCap)
	assign("truck_cap", &p.TruckCap)
	assign("van_day", &p.VanDay)
	assign("van_half", &p.VanHalf)
	assign("truck_day", &p.TruckDay)
	assign("truck_half", &p.TruckHalf)
	assign("km_inc", &p.KmIncluded)
	assign("km_van", &p.KmVan)
	assign("km_truck", &p.KmTruck)
	assign("man_day", &p.ManDay)
	assign("mat_rate", &p.MatRate)
}

func (c *Catalog) buildIndex() {
	c.index = make(map[string]int, len(c.Items))
	for i, it := range c.Items {
		if _, dup := c.index[it.ID]; dup {
			continue // first definition wins
		}
		c.index[it.ID] = i
	}
}

// Lookup resolves an item kind by id.
func (c *Catalog) Lookup(id string) (ItemKind, bool) {
	i, ok := c.index[id]
	if !ok {
		return ItemKind{}, false
	}
	return c.Items[i], true
}

// ByCategory groups items by category, preserving catalog order for both
// categories and items.
func (c *Catalog) ByCategory() []CategoryGroup {
	var groups []CategoryGroup
	pos := map[string]int{}
	for _, it := range c.Items {
		i, ok := pos[it.Category]
		if !ok {
			i = len(groups)
			pos[it.Category] = i
			groups = append(groups, CategoryGroup{Category: it.Category})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
