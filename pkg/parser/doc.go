package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultDocConverter is the command used to convert legacy .doc files.
const DefaultDocConverter = "antiword"

var errConverterUnavailable = errors.New("doc converter not found")

// CommandConverter converts legacy .doc files by running an external command
// that takes a file path as its last argument and prints plain text to stdout.
//
// Files that are really OOXML zip containers with a .doc name are handed to
// the DOCX extractor instead.
type CommandConverter struct {
	Command string
	Args    []string

	// TempDir is where the input file is staged for the command.
	// Defaults to os.TempDir().
	TempDir string
}

// NewCommandConverter returns a converter for the named command.
// Fields after the first are passed as leading arguments.
func NewCommandConverter(command string) *CommandConverter {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = []string{DefaultDocConverter}
	}
	return &CommandConverter{
		Command: fields[0],
		Args:    fields[1:],
	}
}

// Convert implements Converter.
func (c *CommandConverter) Convert(ctx context.Context, data []byte) (string, error) {
	if isZipContainer(data) {
		return extractDOCX(ctx, data)
	}

	bin, err := exec.LookPath(c.Command)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errConverterUnavailable, c.Command)
	}

	f, err := os.CreateTemp(c.TempDir, "fastrag-*.doc")
	if err != nil {
		return "", fmt.Errorf("staging doc for conversion: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("staging doc for conversion: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("staging doc for conversion: %w", err)
	}

	args := append(append([]string{}, c.Args...), f.Name())

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %w: %s", c.Command, err, msg)
		}
		return "", fmt.Errorf("%s: %w", c.Command, err)
	}

	return stdout.String(), nil
}

func isZipContainer(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}
