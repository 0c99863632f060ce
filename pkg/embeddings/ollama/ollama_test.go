package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/embeddings"
	"github.com/papercomputeco/fastrag/pkg/embeddings/ollama"
)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

var _ = Describe("Ollama Embedder", func() {
	var (
		server   *httptest.Server
		handler  http.HandlerFunc
		received embedRequest
	)

	BeforeEach(func() {
		received = embedRequest{}
		handler = func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/embed"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

			out := make([][]float32, len(received.Input))
			for i := range received.Input {
				out[i] = []float32{float32(i), 1, 0}
			}

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":      received.Model,
				"embeddings": out,
			})
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("applies defaults", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Dimensions()).To(BeZero())
	})

	It("sends the whole batch in one request and preserves order", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Model: "all-minilm"})
		Expect(err).NotTo(HaveOccurred())

		vecs, err := e.Embed(context.Background(), []string{"first", "second"})
		Expect(err).NotTo(HaveOccurred())
		Expect(received.Model).To(Equal("all-minilm"))
		Expect(received.Input).To(Equal([]string{"first", "second"}))
		Expect(vecs).To(Equal([][]float32{{0, 1, 0}, {1, 1, 0}}))
	})

	It("learns its dimensions from the first response", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), []string{"x"})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Dimensions()).To(Equal(uint(3)))
	})

	It("rejects vectors of the wrong size", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Dimensions: 384})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), []string{"x"})
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})

	It("wraps server errors", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model \"missing\" not found"}`))
		}

		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Model: "missing"})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), []string{"x"})
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("not found"))
	})

	It("returns an empty batch without calling the server", func() {
		handler = func(http.ResponseWriter, *http.Request) {
			Fail("server should not be called")
		}

		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		vecs, err := e.Embed(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(BeEmpty())
	})
})
