package catalog

import (
	"errors"
	"testing"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c := Default()
	if len(c.Items) == 0 {
		t.Fatalf("embedded catalog is empty")
	}
	desk, ok := c.Lookup("desk")
	if !ok {
		t.Fatalf("default catalog has no desk")
	}
	if desk.UnitVolume <= 0 {
		t.Fatalf("desk volume must be positive, got %g", desk.UnitVolume)
	}
	for _, it := range c.Items {
		if it.ID == "" || it.Name == "" || it.Category == "" || it.UnitVolume <= 0 {
			t.Fatalf("malformed embedded item %+v", it)
		}
	}
	if c.Params != DefaultParams() {
		t.Fatalf("default catalog must carry default params")
	}
}

func TestParseRemoteHappyPath(t *testing.T) {
	body := []byte(`{"status":"success","data":{
		"items":{"furniture":[{"id":"desk","name":"Bureau","vol":0.7}],
		         "it":[{"id":"pc","name":"Unité centrale","vol":0.1}]},
		"params":{"prod_std":8,"van_cap":10}}}`)
	c, err := ParseRemote(body)
	if err != nil {
		t.Fatalf("ParseRemote: %v", err)
	}
	if len(c.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(c.Items))
	}
	if c.Params.ProdStd != 8 || c.Params.VanCap != 10 {
		t.Fatalf("params not overridden: %+v", c.Params)
	}
	// Keys the payload omits keep their defaults.
	if c.Params.TruckCap != DefaultParams().TruckCap {
		t.Fatalf("truck_cap should keep its default, got %g", c.Params.TruckCap)
	}
	if _, ok := c.Lookup("pc"); !ok {
		t.Fatalf("pc not indexed")
	}
}

func TestParseRemoteNonNumericParamKeepsDefault(t *testing.T) {
	body := []byte(`{"status":"success","data":{
		"items":{"furniture":[{"id":"desk","name":"Bureau","vol":0.7}]},
		"params":{"prod_std":"eight"}}}`)
	c, err := ParseRemote(body)
	if err != nil {
		t.Fatalf("ParseRemote: %v", err)
	}
	if c.Params.ProdStd != DefaultParams().ProdStd {
		t.Fatalf("non-numeric param must keep default, got %g", c.Params.ProdStd)
	}
}

func TestParseRemoteRejectsBadPayloads(t *testing.T) {
	cases := map[string]string{
		"not json":       `{{{`,
		"bad status":     `{"status":"error","data":{}}`,
		"missing items":  `{"status":"success","data":{"params":{}}}`,
		"missing params": `{"status":"success","data":{"items":{}}}`,
		"category shape": `{"status":"success","data":{"items":{"furniture":{"id":"x"}},"params":{}}}`,
		"item no id":     `{"status":"success","data":{"items":{"furniture":[{"name":"x","vol":1}]},"params":{}}}`,
		"item bad vol":   `{"status":"success","data":{"items":{"furniture":[{"id":"x","name":"x","vol":0}]},"params":{}}}`,
	}
	for name, body := range cases {
		if _, err := ParseRemote([]byte(body)); !errors.Is(err, ErrBadPayload) {
			t.Fatalf("%s: expected ErrBadPayload, got %v", name, err)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	c := Default()
	if _, ok := c.Lookup("hovercraft"); ok {
		t.Fatalf("unknown id must not resolve")
	}
}

func TestByCategoryPreservesOrder(t *testing.T) {
	body := []byte(`{"status":"success","data":{
		"items":{"b":[{"id":"b1","name":"B1","vol":1}],
		         "a":[{"id":"a1","name":"A1","vol":1},{"id":"a2","name":"A2","vol":1}]},
		"params":{}}}`)
	c, err := ParseRemote(body)
	if err != nil {
		t.Fatalf("ParseRemote: %v", err)
	}
	groups := c.ByCategory()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Category != "b" || groups[1].Category != "a" {
		t.Fatalf("category order not preserved: %+v", groups)
	}
	if len(groups[1].Items) != 2 || groups[1].Items[0].ID != "a1" {
		t.Fatalf("item order not preserved: %+v", groups[1].Items)
	}
}

func TestDuplicateIDFirstWins(t *testing.T) {
	body := []byte(`{"status":"success","data":{
		"items":{"furniture":[{"id":"desk","name":"First","vol":1},{"id":"desk","name":"Second","vol":2}]},
		"params":{}}}`)
	c, err := ParseRemote(body)
	if err != nil {
		t.Fatalf("ParseRemote: %v", err)
	}
	it, ok := c.Lookup("desk")
	if !ok || it.Name != "First" {
		t.Fatalf("first definition must win, got %+v", it)
	}
}
