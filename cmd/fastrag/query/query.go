// Package querycmder provides the query command for asking a running FastRAG
// server a question.
package querycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/fastrag/api"
	"github.com/papercomputeco/fastrag/pkg/cliui"
	"github.com/papercomputeco/fastrag/pkg/config"
	"github.com/papercomputeco/fastrag/pkg/utils"
)

var (
	rankStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	distanceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// previewLen bounds the passage text shown per document.
const previewLen = 240

type queryCommander struct {
	question string
	docs     bool
	topK     int
	raw      bool

	apiTarget string
}

const queryLongDesc string = `Ask a running FastRAG server a question.

By default the question is answered from the single closest document and
the extracted answer is printed with its confidence. With --docs the
closest documents are listed instead, ordered by distance.

Examples:
  fastrag query "What is the capital of France?"
  fastrag query "quarterly revenue" --docs --top-k 10
  fastrag query "who signed the lease" --api-target http://localhost:9000`

const queryShortDesc string = "Ask FastRAG a question"

var queryFlags = config.FlagSet{
	config.FlagAPITarget: {
		Name:        "api-target",
		Shorthand:   "a",
		ViperKey:    "client.api_target",
		Description: "FastRAG API server URL",
	},
}

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.ExactArgs(1),
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
			cmder.question = args[0]
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&cmder.docs, "docs", false, "List the closest documents instead of extracting an answer")
	cmd.Flags().IntVarP(&cmder.topK, "top-k", "k", 5, "Number of documents to return with --docs")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the raw JSON response")
	config.AddStringFlag(cmd, queryFlags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *queryCommander) run(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if c.docs {
		res, err := QueryDocAPI(ctx, c.apiTarget, c.question, c.topK)
		if err != nil {
			return err
		}
		if c.raw {
			return writeJSON(w, res)
		}
		printDocuments(w, c.question, res)
		return nil
	}

	res, err := QueryAPI(ctx, c.apiTarget, c.question)
	if err != nil {
		return err
	}
	if c.raw {
		return writeJSON(w, res)
	}
	printAnswer(w, res)
	return nil
}

func printAnswer(w io.Writer, res *api.QueryResponse) {
	fmt.Fprintf(w, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Answer for:"),
		idStyle.Render(strconv.Quote(res.Query)),
	)

	rendered, err := cliui.RenderMarkdown("> " + res.Answer)
	if err != nil {
		rendered = "  " + res.Answer + "\n"
	}
	fmt.Fprint(w, rendered)

	fmt.Fprintf(w, "  %s %s",
		cliui.KeyStyle.Render("confidence"),
		cliui.ValueStyle.Render(fmt.Sprintf("%.3f", res.Confidence)),
	)
	fmt.Fprint(w, "\n\n")
}

func printDocuments(w io.Writer, question string, res *api.QueryDocResponse) {
	var (
		ids       = first(res.Results.IDs)
		documents = first(res.Results.Documents)
		distances = first(res.Results.Distances)
	)

	if len(documents) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return
	}

	fmt.Fprintf(w, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Documents for:"),
		idStyle.Render(strconv.Quote(question)),
	)

	for i, doc := range documents {
		fmt.Fprintf(w, "  %s", rankStyle.Render(fmt.Sprintf("#%d", i+1)))
		if i < len(distances) {
			fmt.Fprintf(w, "  %s", distanceStyle.Render(fmt.Sprintf("distance %.4f", distances[i])))
		}
		if i < len(ids) {
			fmt.Fprintf(w, "  %s", idStyle.Render(ids[i]))
		}
		fmt.Fprintln(w)

		preview := strings.Join(strings.Fields(doc), " ")
		fmt.Fprintf(w, "     %s\n\n", previewStyle.Render(utils.Truncate(preview, previewLen)))
	}
}

// first returns the result row for the single query sent.
func first[T any](rows [][]T) []T {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// QueryAPI calls /query on the server at apiTarget.
func QueryAPI(ctx context.Context, apiTarget, question string) (*api.QueryResponse, error) {
	var out api.QueryResponse
	if err := get(ctx, apiTarget, "/query", url.Values{"query": {question}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryDocAPI calls /query_doc on the server at apiTarget.
func QueryDocAPI(ctx context.Context, apiTarget, question string, topK int) (*api.QueryDocResponse, error) {
	params := url.Values{
		"query": {question},
		"top_k": {strconv.Itoa(topK)},
	}

	var out api.QueryDocResponse
	if err := get(ctx, apiTarget, "/query_doc", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func get(ctx context.Context, apiTarget, path string, params url.Values, out any) error {
	u, err := url.Parse(apiTarget)
	if err != nil {
		return fmt.Errorf("invalid API target URL: %w", err)
	}
	u.Path = path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach FastRAG API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e api.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Detail != "" {
			return fmt.Errorf("request failed (HTTP %d): %s", resp.StatusCode, e.Detail)
		}
		return fmt.Errorf("request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
