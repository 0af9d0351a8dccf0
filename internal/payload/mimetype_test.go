package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMimeTypeBasic(t *testing.T) {
	p := parseMimeType("text/html")
	assert.Equal(t, "text", p.Type)
	assert.Equal(t, "html", p.Subtype)
	assert.Equal(t, "", p.Suffix)
	assert.Empty(t, p.Params)
}

func TestParseMimeTypeParams(t *testing.T) {
	p := parseMimeType(`text/plain; charset="utf-8"; format=flowed`)
	assert.Equal(t, "text", p.Type)
	assert.Equal(t, "plain", p.Subtype)
	assert.Equal(t, "utf-8", p.Params["charset"])
	assert.Equal(t, "flowed", p.Params["format"])
}

func TestParseMimeTypeSuffix(t *testing.T) {
	p := parseMimeType("application/hal+json")
	assert.Equal(t, "application", p.Type)
	assert.Equal(t, "hal", p.Subtype)
	assert.Equal(t, "json", p.Suffix)
}

func TestParseMimeTypeLenient(t *testing.T) {
	// A bare "*" expands, a parameter without '=' keeps an empty value,
	// casing and surrounding space normalize.
	p := parseMimeType("*")
	assert.Equal(t, "*", p.Type)
	assert.Equal(t, "*", p.Subtype)

	p = parseMimeType("Text/Plain; KeyOnly")
	assert.Equal(t, "text", p.Type)
	v, ok := p.Params["keyonly"]
	require.True(t, ok)
	assert.Equal(t, "", v)

	p = parseMimeType("")
	assert.Equal(t, "", p.Type)
	assert.Empty(t, p.Params)
}

func TestCharsetOf(t *testing.T) {
	assert.Equal(t, "iso-8859-1", charsetOf("text/plain; charset=iso-8859-1"))
	assert.Equal(t, "", charsetOf("application/octet-stream"))
}

type namedSource struct{ name string }

func (s namedSource) Name() string { return s.name }

func TestGuessFilename(t *testing.T) {
	assert.Equal(t, "report.txt", guessFilename(namedSource{"/var/data/report.txt"}))
	assert.Equal(t, "", guessFilename(namedSource{"<stdin>"}))
	assert.Equal(t, "", guessFilename(namedSource{""}))
	assert.Equal(t, "", guessFilename(42))
}

func TestGuessContentType(t *testing.T) {
	assert.Equal(t, "text/html; charset=utf-8", guessContentType("index.html"))
	assert.Equal(t, defaultContentType, guessContentType("mystery.zzz"))
}

func TestContentDispositionHeader(t *testing.T) {
	v, err := contentDispositionHeader("attachment", map[string]string{"filename": "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, "attachment; filename=notes.txt", v)

	_, err = contentDispositionHeader("inv alid type", nil)
	require.Error(t, err)
}
