package decode

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<Replay><EventEndTurn Reason="1"/></Replay>`

func zlibB64(t *testing.T, text string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func gzipB64(t *testing.T, text string) string {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func rawDeflateB64(t *testing.T, text string) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeLiteralXML(t *testing.T) {
	res, err := Decode("  \n"+sampleXML+"\n", 0)
	require.NoError(t, err)
	assert.Equal(t, FormatXML, res.Format)
	assert.Equal(t, sampleXML, res.XML)
}

func TestDecodeIsPure(t *testing.T) {
	input := zlibB64(t, sampleXML)
	first, err := Decode(input, 0)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := Decode(input, 0)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDecodeBBRStrategies(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"zlib", zlibB64(t, sampleXML)},
		{"raw deflate", rawDeflateB64(t, sampleXML)},
		{"gzip", gzipB64(t, sampleXML)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Decode(tt.input, 0)
			require.NoError(t, err)
			assert.Equal(t, FormatBBR, res.Format)
			assert.True(t, strings.HasPrefix(res.XML, "<"))
			assert.Equal(t, sampleXML, res.XML)
		})
	}
}

func TestDecodeBase64WithWhitespace(t *testing.T) {
	encoded := zlibB64(t, sampleXML)
	wrapped := encoded[:10] + "\n" + encoded[10:20] + "\r\n " + encoded[20:]
	res, err := Decode(wrapped, 0)
	require.NoError(t, err)
	assert.Equal(t, FormatBBR, res.Format)
}

func TestDecodeSizeCap(t *testing.T) {
	big := "<Replay>" + strings.Repeat("<Pad/>", 1000) + "</Replay>"

	// Cap applies to literal XML.
	_, err := Decode(big, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "100")

	// And to decoded bbr content, regardless of validity.
	_, err = Decode(zlibB64(t, big), 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	// Under the cap both pass.
	_, err = Decode(big, len(big))
	assert.NoError(t, err)
}

func TestDecodeRejectsEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := Decode(input, 0)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := []string{
		"not base64 at all!!!",
		base64.StdEncoding.EncodeToString([]byte("plain bytes, no compression")),
		base64.StdEncoding.EncodeToString([]byte{}),
	}
	for _, input := range cases {
		_, err := Decode(input, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "not valid XML or supported replay content")
	}
}

func TestDecodeCompressedNonXMLRejected(t *testing.T) {
	// Valid container, but the payload is not XML.
	_, err := Decode(zlibB64(t, "hello world"), 0)
	assert.ErrorIs(t, err, ErrValidation)
}
