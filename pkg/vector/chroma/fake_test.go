package chroma_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
)

// fakeChroma is an in-memory stand-in for the subset of the Chroma v2 REST
// API the driver uses. Distances are squared L2 like Chroma's default.
type fakeChroma struct {
	mu      sync.Mutex
	order   []string
	records map[string]fakeRecord
	created bool
}

type fakeRecord struct {
	embedding []float32
	document  string
	metadata  map[string]string
}

const fakeCollectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

func newFakeChroma() *httptest.Server {
	f := &fakeChroma{records: map[string]fakeRecord{}}
	return httptest.NewServer(http.HandlerFunc(f.serve))
}

func (f *fakeChroma) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, fakeCollectionsPath)
	switch {
	case r.Method == http.MethodGet && path == "/documents":
		if !f.created {
			http.Error(w, "collection not found", http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]string{"id": "col-1", "name": "documents"})
	case r.Method == http.MethodPost && path == "":
		f.created = true
		writeJSON(w, map[string]string{"id": "col-1", "name": "documents"})
	case path == "/col-1/upsert":
		f.upsert(w, r)
	case path == "/col-1/query":
		f.query(w, r)
	case path == "/col-1/get":
		f.get(w, r)
	case path == "/col-1/delete":
		f.delete(w, r)
	case path == "/col-1/count":
		writeJSON(w, len(f.order))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeChroma) upsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs        []string            `json:"ids"`
		Embeddings [][]float32         `json:"embeddings"`
		Metadatas  []map[string]string `json:"metadatas"`
		Documents  []string            `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for i, id := range req.IDs {
		if _, ok := f.records[id]; !ok {
			f.order = append(f.order, id)
		}
		rec := fakeRecord{embedding: req.Embeddings[i], document: req.Documents[i]}
		if i < len(req.Metadatas) {
			rec.metadata = req.Metadatas[i]
		}
		f.records[id] = rec
	}
	writeJSON(w, map[string]any{})
}

func (f *fakeChroma) query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueryEmbeddings [][]float32 `json:"query_embeddings"`
		NResults        int         `json:"n_results"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	type hit struct {
		id   string
		dist float32
	}
	q := req.QueryEmbeddings[0]
	hits := make([]hit, 0, len(f.order))
	for _, id := range f.order {
		var d float32
		for i, v := range f.records[id].embedding {
			diff := v - q[i]
			d += diff * diff
		}
		hits = append(hits, hit{id: id, dist: d})
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		}
		return 0
	})
	if len(hits) > req.NResults {
		hits = hits[:req.NResults]
	}

	ids := []string{}
	dists := []float32{}
	docs := []string{}
	metas := []map[string]string{}
	for _, h := range hits {
		ids = append(ids, h.id)
		dists = append(dists, h.dist)
		docs = append(docs, f.records[h.id].document)
		metas = append(metas, f.records[h.id].metadata)
	}

	writeJSON(w, map[string]any{
		"ids":       [][]string{ids},
		"distances": [][]float32{dists},
		"documents": [][]string{docs},
		"metadatas": [][]map[string]string{metas},
	})
}

func (f *fakeChroma) get(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ids := []string{}
	docs := []string{}
	metas := []map[string]string{}
	embs := [][]float32{}
	for _, id := range f.order {
		if !slices.Contains(req.IDs, id) {
			continue
		}
		rec := f.records[id]
		ids = append(ids, id)
		docs = append(docs, rec.document)
		metas = append(metas, rec.metadata)
		embs = append(embs, rec.embedding)
	}

	writeJSON(w, map[string]any{
		"ids":        ids,
		"documents":  docs,
		"metadatas":  metas,
		"embeddings": embs,
	})
}

func (f *fakeChroma) delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, id := range req.IDs {
		delete(f.records, id)
	}
	f.order = slices.DeleteFunc(f.order, func(id string) bool {
		return slices.Contains(req.IDs, id)
	})
	writeJSON(w, map[string]any{})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
