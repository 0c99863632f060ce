// Package ingestcmder provides the ingest command for uploading documents to
// a running FastRAG server.
package ingestcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/fastrag/api"
	"github.com/papercomputeco/fastrag/pkg/cliui"
	"github.com/papercomputeco/fastrag/pkg/config"
)

type ingestCommander struct {
	files     []string
	apiTarget string
	debug     bool
}

const ingestLongDesc string = `Upload documents to a running FastRAG server.

Each file is sent to the /ingest endpoint as its own request. Supported
formats are .pdf, .docx, .doc and .txt. A file that fails does not stop
the rest; the command exits non-zero if any upload failed.

Examples:
  fastrag ingest report.pdf
  fastrag ingest notes/*.txt --api-target http://localhost:9000`

const ingestShortDesc string = "Upload documents to FastRAG"

var ingestFlags = config.FlagSet{
	config.FlagAPITarget: {
		Name:        "api-target",
		Shorthand:   "a",
		ViperKey:    "client.api_target",
		Description: "FastRAG API server URL",
	},
}

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("api-target") {
				return nil
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.files = args

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, ingestFlags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Ingesting into"),
		cliui.DimStyle.Render(c.apiTarget),
	)

	failed := 0
	for _, path := range c.files {
		var res *api.IngestResponse
		err := cliui.Step(w, filepath.Base(path), func() error {
			var err error
			res, err = IngestAPI(ctx, c.apiTarget, path)
			return err
		})
		if err != nil {
			failed++
			fmt.Fprintf(w, "    %s\n", cliui.DimStyle.Render(err.Error()))
			continue
		}
		if c.debug {
			fmt.Fprintf(w, "    %s %s\n", cliui.DimStyle.Render("id"), cliui.ValueStyle.Render(res.ID))
		}
	}
	fmt.Fprintln(w)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(c.files))
	}
	return nil
}

// IngestAPI uploads one file to the /ingest endpoint of the server at
// apiTarget.
func IngestAPI(ctx context.Context, apiTarget, path string) (*api.IngestResponse, error) {
	u, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	u.Path = "/ingest"

	body, contentType, err := multipartBody(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot reach FastRAG API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp.StatusCode, raw)
	}

	var out api.IngestResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &out, nil
}

func multipartBody(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("finishing form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// responseError prefers the server's detail message over the raw body.
func responseError(status int, raw []byte) error {
	var e api.ErrorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Detail != "" {
		return fmt.Errorf("request failed (HTTP %d): %s", status, e.Detail)
	}
	if len(raw) == 0 {
		return fmt.Errorf("request failed (HTTP %d): %s", status, http.StatusText(status))
	}
	return fmt.Errorf("request failed (HTTP %d): %s", status, string(raw))
}
