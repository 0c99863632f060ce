// Package initcmder provides the init command for initializing a local
// .fastrag directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/fastrag/pkg/cliui"
	"github.com/papercomputeco/fastrag/pkg/config"
)

const (
	dirName    = ".fastrag"
	configFile = "config.toml"

	// remoteTimeout bounds fetching a preset from a URL.
	remoteTimeout = 30 * time.Second
)

const initLongDesc string = `Initialize a new .fastrag/ directory in the current working directory.

Creates a local .fastrag/ directory that takes precedence over the default
~/.fastrag/ directory for configuration and the default vector index, and
writes a config.toml with default values.

Use --preset to start from a provider preset or from a config.toml served
at a URL. An existing config.toml is only replaced when --preset is given.

Presets:
  ollama     Local Ollama embeddings (default)
  openai     OpenAI embeddings
  offline    Hashing embeddings, no external services

Examples:
  fastrag init
  fastrag init --preset offline
  fastrag init --preset https://example.com/fastrag/config.toml`

const initShortDesc string = "Initialize a local .fastrag/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset name ("+strings.Join(config.ValidPresetNames(), ", ")+") or URL of a config.toml")

	return cmd
}

func (c *initCommander) run(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Resolve the preset before touching the filesystem so a bad preset
	// leaves nothing behind.
	var cfg *config.Config
	if c.preset != "" {
		var err error
		cfg, err = resolvePreset(ctx, c.preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	dir := filepath.Join(cwd, dirName)

	existed := isDir(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .fastrag directory: %w", err)
	}

	path := filepath.Join(dir, configFile)
	if cfg == nil {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(w, "%s Already initialized: %s\n", cliui.SuccessMark, dir)
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading config: %w", err)
		}
		cfg = config.NewDefaultConfig()
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	if existed {
		fmt.Fprintf(w, "%s Wrote %s\n", cliui.SuccessMark, path)
	} else {
		fmt.Fprintf(w, "%s Initialized .fastrag directory: %s\n", cliui.SuccessMark, dir)
	}
	return nil
}

// resolvePreset returns the config for a preset name, or fetches and parses
// it when preset is an http(s) URL.
func resolvePreset(ctx context.Context, preset string) (*config.Config, error) {
	if strings.HasPrefix(preset, "http://") || strings.HasPrefix(preset, "https://") {
		return fetchRemoteConfig(ctx, preset)
	}
	return config.PresetConfig(preset)
}

func fetchRemoteConfig(ctx context.Context, rawURL string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
