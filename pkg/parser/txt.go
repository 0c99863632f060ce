package parser

import (
	"context"
	"errors"
	"unicode/utf8"
)

var errInvalidUTF8 = errors.New("text is not valid UTF-8")

func extractTXT(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errInvalidUTF8
	}
	return string(data), nil
}
