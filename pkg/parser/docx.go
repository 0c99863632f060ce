package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var errNoDocumentPart = errors.New("docx archive has no word/document.xml")

// extractDOCX returns the body paragraphs of a DOCX file joined by "\n".
// Empty paragraphs are kept as empty lines. Paragraphs nested in tables are
// not part of the body paragraph list and are skipped.
func extractDOCX(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening docx archive: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			part = f
			break
		}
	}
	if part == nil {
		return "", errNoDocumentPart
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("opening word/document.xml: %w", err)
	}
	defer rc.Close()

	paragraphs, err := bodyParagraphs(ctx, rc)
	if err != nil {
		return "", err
	}

	return strings.Join(paragraphs, "\n"), nil
}

func bodyParagraphs(ctx context.Context, r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		stack      []string
		current    strings.Builder
		inPara     bool
		paraDepth  int
		inText     bool
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding word/document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := ""
			if t.Name.Space == wordNamespace {
				local = t.Name.Local
			}

			switch {
			case local == "p" && !inPara && len(stack) > 0 && stack[len(stack)-1] == "body":
				inPara = true
				paraDepth = len(stack)
				current.Reset()
			case inPara && local == "t":
				inText = true
			case inPara && local == "tab":
				current.WriteByte('\t')
			case inPara && (local == "br" || local == "cr"):
				current.WriteByte('\n')
			}

			stack = append(stack, local)

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			local := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			switch {
			case local == "t":
				inText = false
			case local == "p" && inPara && len(stack) == paraDepth:
				paragraphs = append(paragraphs, current.String())
				inPara = false
			}

		case xml.CharData:
			if inPara && inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
