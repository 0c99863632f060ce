package servecmder

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/config"
	"github.com/papercomputeco/fastrag/pkg/logger"
	"github.com/papercomputeco/fastrag/pkg/metrics"
	"github.com/papercomputeco/fastrag/pkg/rag"
)

func offlineConfig() *config.Config {
	cfg, err := config.PresetConfig("offline")
	Expect(err).NotTo(HaveOccurred())
	cfg.VectorStore.Provider = "inmemory"
	return cfg
}

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("registers every pipeline flag with its config default", func() {
		cmd := NewServeCmd()
		defaults := config.NewDefaultConfig()

		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(defaults.API.Listen))
		Expect(cmd.Flags().Lookup("vector-store-provider").DefValue).To(Equal(defaults.VectorStore.Provider))
		Expect(cmd.Flags().Lookup("embedding-provider").DefValue).To(Equal(defaults.Embedding.Provider))
		Expect(cmd.Flags().Lookup("embedding-dimensions").DefValue).To(Equal("384"))
		Expect(cmd.Flags().Lookup("answer-provider").DefValue).To(Equal(defaults.Answer.Provider))
		Expect(cmd.Flags().Lookup("events-provider").DefValue).To(Equal(defaults.Events.Provider))

		for _, name := range []string{"workers", "log-file", "log-json", "no-mcp", "no-metrics"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("rejects positional arguments", func() {
		cmd := NewServeCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})
})

var _ = Describe("Config resolution", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "fastrag-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("prefers flags over the config file", func() {
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(`
[api]
listen = ":7000"

[embedding]
provider = "hashing"
`), 0o644)
		Expect(err).NotTo(HaveOccurred())

		cmder := &serveCommander{}
		cmd := cmder.command()
		cmd.Flags().String("config-dir", "", "")
		Expect(cmd.ParseFlags([]string{"--config-dir", tmpDir, "--listen", ":9999"})).To(Succeed())
		Expect(cmd.PreRunE(cmd, nil)).To(Succeed())

		Expect(cmder.cfg.API.Listen).To(Equal(":9999"))
		Expect(cmder.cfg.Embedding.Provider).To(Equal("hashing"))
		Expect(cmder.cfg.VectorStore.Provider).To(Equal("sqlite"))
	})

	It("reads FASTRAG_ environment variables", func() {
		GinkgoT().Setenv("FASTRAG_ANSWER_PROVIDER", "huggingface")

		cmder := &serveCommander{}
		cmd := cmder.command()
		cmd.Flags().String("config-dir", "", "")
		Expect(cmd.ParseFlags([]string{"--config-dir", tmpDir})).To(Succeed())
		Expect(cmd.PreRunE(cmd, nil)).To(Succeed())

		Expect(cmder.cfg.Answer.Provider).To(Equal("huggingface"))
	})
})

var _ = Describe("newStack", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("builds a working pipeline from the offline preset", func() {
		s, err := newStack(ctx, offlineConfig(), "", metrics.New(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		res, err := s.service.Ingest(ctx, rag.IngestRequest{
			Filename: "france.txt",
			Content:  strings.NewReader("The capital of France is Paris."),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.ID).NotTo(BeEmpty())

		answer, err := s.service.Query(ctx, rag.QueryRequest{Query: "What is the capital of France?", TopK: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(answer.Answer).To(ContainSubstring("Paris"))
	})

	It("puts the default sqlite index in the config directory", func() {
		tmpDir, err := os.MkdirTemp("", "fastrag-serve-index-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(tmpDir)

		cfg := offlineConfig()
		cfg.VectorStore.Provider = "sqlite"

		path, err := indexPath(cfg, tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HavePrefix(tmpDir))
		Expect(filepath.Base(path)).To(Equal("index.db"))
	})

	It("keeps an explicit index path", func() {
		cfg := offlineConfig()
		cfg.VectorStore.Provider = "sqlite"
		cfg.VectorStore.Path = "/data/index.db"

		path, err := indexPath(cfg, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/data/index.db"))
	})

	It("fails startup for an unknown vector store", func() {
		cfg := offlineConfig()
		cfg.VectorStore.Provider = "cassandra"

		s, err := newStack(ctx, cfg, "", nil, logger.Nop())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("creating vector store"))
		Expect(s).To(BeNil())
	})

	It("fails startup for an unknown embedder", func() {
		cfg := offlineConfig()
		cfg.Embedding.Provider = "word2vec"

		_, err := newStack(ctx, cfg, "", nil, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("creating embedder")))
	})

	It("fails startup for an unknown answer provider", func() {
		cfg := offlineConfig()
		cfg.Answer.Provider = "oracle"

		_, err := newStack(ctx, cfg, "", nil, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("creating answer extractor")))
	})
})
