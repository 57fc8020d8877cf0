// Package decode normalizes raw replay uploads into canonical XML text.
//
// Two input shapes are supported: literal XML, and the "bbr" container (a
// base64-encoded, compressed byte stream). Decoding is pure: the same input
// always yields the same canonical text and format tag.
package decode

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Format tags reported alongside the canonical XML.
const (
	FormatXML = "xml"
	FormatBBR = "bbr"
)

// ErrValidation marks input-validation failures (empty input, undecodable
// content, decoded text exceeding the configured cap). These are terminal:
// the same input will always fail the same way, so callers should never
// retry them.
var ErrValidation = errors.New("invalid replay input")

// Result is the canonical form of a replay upload.
type Result struct {
	XML    string
	Format string
}

// xmlMarkers are the prefixes recognized as literal replay XML. The bare "<"
// entry keeps the list tolerant of schema variants; the explicit roots are
// retained for the bbr validity probe where a stricter prefix check reads
// better in logs.
var xmlMarkers = []string{"<?xml", "<Replay", "<MatchReplay", "<"}

// Decode classifies raw upload text and returns canonical XML plus a format
// tag. maxChars, when positive, caps the decoded length; exceeding it is a
// validation failure regardless of how valid the content is, which guards
// against decompression-bomb amplification.
func Decode(raw string, maxChars int) (Result, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{}, fmt.Errorf("%w: empty input", ErrValidation)
	}

	if hasXMLMarker(trimmed) {
		return capped(Result{XML: trimmed, Format: FormatXML}, maxChars)
	}

	compressed, err := base64.StdEncoding.DecodeString(stripWhitespace(trimmed))
	if err != nil || len(compressed) == 0 {
		return Result{}, fmt.Errorf("%w: not valid XML or supported replay content", ErrValidation)
	}

	// Strategy order is fixed: standard deflate (zlib), raw deflate, gzip.
	// The first strategy whose output is text starting with an XML marker
	// wins; trying all three costs little and the wrappers are too similar
	// to sniff reliably.
	for _, inflate := range []func([]byte) ([]byte, error){inflateZlib, inflateRaw, inflateGzip} {
		decoded, err := inflate(compressed)
		if err != nil {
			continue
		}
		text := strings.TrimSpace(string(decoded))
		if isXMLText(text) {
			return capped(Result{XML: text, Format: FormatBBR}, maxChars)
		}
	}

	return Result{}, fmt.Errorf("%w: not valid XML or supported replay content", ErrValidation)
}

func capped(r Result, maxChars int) (Result, error) {
	if maxChars > 0 && len(r.XML) > maxChars {
		return Result{}, fmt.Errorf("%w: decoded replay exceeds %d characters", ErrValidation, maxChars)
	}
	return r, nil
}

func hasXMLMarker(text string) bool {
	for _, marker := range xmlMarkers {
		if strings.HasPrefix(text, marker) {
			return true
		}
	}
	return false
}

func isXMLText(text string) bool {
	return text != "" && utf8.ValidString(text) && hasXMLMarker(text)
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}

func inflateZlib(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func inflateRaw(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}

func inflateGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
