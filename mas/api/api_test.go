package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/nci/eodatasets/mas/index"
	"github.com/nci/gomemcache/memcache"
	"golang.org/x/net/context"
)

type memoryStore struct {
	docs    map[uuid.UUID][]byte
	records []index.Record
	calls   int
}

func (m *memoryStore) Lookup(ctx context.Context, id uuid.UUID) ([]byte, error) {
	m.calls++
	doc, ok := m.docs[id]
	if !ok {
		return nil, index.ErrNotFound
	}
	return doc, nil
}

func (m *memoryStore) Product(ctx context.Context, product string, limit int) ([]index.Record, error) {
	m.calls++
	var out []index.Record
	for _, r := range m.records {
		if r.Product == product && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type memoryCache map[string]*memcache.Item

func (c memoryCache) Get(key string) (*memcache.Item, error) {
	item, ok := c[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}
	return item, nil
}

func (c memoryCache) Set(item *memcache.Item) error {
	c[item.Key] = item
	return nil
}

func get(t *testing.T, s *server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func testServer() (*server, *memoryStore, uuid.UUID) {
	id := uuid.New()
	store := &memoryStore{
		docs: map[uuid.UUID][]byte{id: []byte(`{"id": "` + id.String() + `"}`)},
		records: []index.Record{
			{ID: id, Product: "s1ac_bck", Label: "s1ac_bck_2018-11-04"},
			{ID: uuid.New(), Product: "s1ac_bck", Label: "s1ac_bck_2018-11-16"},
			{ID: uuid.New(), Product: "ls8_fc", Label: "ls8_fc_2018-11-04"},
		},
	}
	return &server{store: store, listLimit: 10}, store, id
}

func TestLookup(t *testing.T) {
	s, _, id := testServer()

	rec := get(t, s, "/?id="+id.String())
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), id.String()) {
		t.Errorf("lookup: %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type %s", ct)
	}

	for target, status := range map[string]int{
		"/?id=" + uuid.New().String(): 404,
		"/?id=not-a-uuid":             400,
		"/?intersects":                400,
		"/?product=x&limit=none":      400,
	} {
		if rec := get(t, s, target); rec.Code != status {
			t.Errorf("%s: status %d, want %d", target, rec.Code, status)
		}
	}
}

func TestProduct(t *testing.T) {
	s, _, _ := testServer()

	rec := get(t, s, "/?product=s1ac_bck")
	var records []index.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("%v: %s", err, rec.Body)
	}
	if len(records) != 2 {
		t.Errorf("records %v", records)
	}

	rec = get(t, s, "/?product=s1ac_bck&limit=1")
	records = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("limited records %v", records)
	}
}

func TestMemcache(t *testing.T) {
	s, store, id := testServer()
	mc := memoryCache{}
	s.mc = mc
	s.cacheSeconds = 60

	first := get(t, s, "/?id="+id.String())
	second := get(t, s, "/?id="+id.String())
	if first.Body.String() != second.Body.String() {
		t.Errorf("cached response differs: %s != %s", first.Body, second.Body)
	}
	if store.calls != 1 {
		t.Errorf("expected one store call, got %d", store.calls)
	}
	if len(mc) != 1 {
		t.Fatalf("expected one cached item, got %d", len(mc))
	}
	for _, item := range mc {
		if item.Expiration != 60 {
			t.Errorf("expiration %d", item.Expiration)
		}
	}

	// Errors are not cached.
	get(t, s, "/?id="+uuid.New().String())
	if len(mc) != 1 {
		t.Errorf("expected one cached item, got %d", len(mc))
	}
}

func TestHTTPJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	httpJSONError(rec, errors.New(`bad "input"`), http.StatusBadRequest)
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%v: %s", err, rec.Body)
	}
	if body["error"] != `bad "input"` {
		t.Errorf("error %q", body["error"])
	}
}
