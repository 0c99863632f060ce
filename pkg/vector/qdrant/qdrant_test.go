package qdrant_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/vector"
	"github.com/papercomputeco/fastrag/pkg/vector/qdrant"
)

var _ = Describe("Driver", func() {
	Describe("NewDriver", func() {
		It("requires dimensions", func() {
			_, err := qdrant.NewDriver(context.Background(), qdrant.Config{URL: "http://localhost:6334"}, nil)
			Expect(err).To(MatchError(vector.ErrConnection))
			Expect(err.Error()).To(ContainSubstring("dimensions"))
		})

		It("requires a URL", func() {
			_, err := qdrant.NewDriver(context.Background(), qdrant.Config{Dimensions: 4}, nil)
			Expect(err).To(MatchError(vector.ErrConnection))
		})
	})

	Describe("client config", func() {
		It("defaults to the gRPC port", func() {
			c, err := qdrant.ClientConfig(qdrant.Config{URL: "http://qdrant.local"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Host).To(Equal("qdrant.local"))
			Expect(c.Port).To(Equal(qdrant.DefaultPort))
			Expect(c.UseTLS).To(BeFalse())
		})

		It("honors an explicit port, TLS and API key", func() {
			c, err := qdrant.ClientConfig(qdrant.Config{URL: "https://qdrant.local:7000", APIKey: "secret"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Host).To(Equal("qdrant.local"))
			Expect(c.Port).To(Equal(7000))
			Expect(c.UseTLS).To(BeTrue())
			Expect(c.APIKey).To(Equal("secret"))
		})

		It("rejects a URL without a host", func() {
			_, err := qdrant.ClientConfig(qdrant.Config{URL: "not a url"})
			Expect(err).To(MatchError(vector.ErrConnection))
		})
	})

	Describe("point ids", func() {
		It("maps a document id to a stable UUID", func() {
			a := qdrant.PointID("doc-1").GetUuid()
			Expect(a).To(HaveLen(36))
			Expect(qdrant.PointID("doc-1").GetUuid()).To(Equal(a))
			Expect(qdrant.PointID("doc-2").GetUuid()).NotTo(Equal(a))
		})
	})

	Describe("payload", func() {
		It("carries id, text and metadata", func() {
			doc := vector.Document{
				ID:       "doc-1",
				Text:     "hello world",
				Metadata: map[string]string{"filename": "hello.txt"},
			}

			back := qdrant.FromPayload(qdrant.ToPayload(doc), []float32{1, 2})
			Expect(back.ID).To(Equal("doc-1"))
			Expect(back.Text).To(Equal("hello world"))
			Expect(back.Metadata).To(HaveKeyWithValue("filename", "hello.txt"))
			Expect(back.Embedding).To(Equal([]float32{1, 2}))
		})

		It("leaves metadata nil when there is none", func() {
			back := qdrant.FromPayload(qdrant.ToPayload(vector.Document{ID: "x", Text: "y"}), nil)
			Expect(back.Metadata).To(BeNil())
		})
	})
})
