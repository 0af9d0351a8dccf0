package payload

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// parsedMimeType is a MIME type split into its components.
type parsedMimeType struct {
	Type    string
	Subtype string
	Suffix  string
	Params  map[string]string
}

// parseMimeType splits a MIME type permissively: missing '=' in a parameter
// is tolerated, surrounding quotes and spaces are stripped, and a bare "*"
// means "*/*". Unlike mime.ParseMediaType it never rejects its input, which
// matters for charset extraction from lenient, caller-supplied values.
func parseMimeType(mimeType string) parsedMimeType {
	parsed := parsedMimeType{Params: map[string]string{}}
	if mimeType == "" {
		return parsed
	}

	parts := strings.Split(mimeType, ";")
	for _, item := range parts[1:] {
		if item == "" {
			continue
		}
		key, value, found := strings.Cut(item, "=")
		if !found {
			value = ""
		}
		parsed.Params[strings.ToLower(strings.TrimSpace(key))] = strings.Trim(value, ` "`)
	}

	fullType := strings.ToLower(strings.TrimSpace(parts[0]))
	if fullType == "*" {
		fullType = "*/*"
	}
	if mtype, stype, found := strings.Cut(fullType, "/"); found {
		parsed.Type, parsed.Subtype = mtype, stype
	} else {
		parsed.Type = fullType
	}
	if stype, suffix, found := strings.Cut(parsed.Subtype, "+"); found {
		parsed.Subtype, parsed.Suffix = stype, suffix
	}
	return parsed
}

// charsetOf extracts the charset parameter of a content type, or "".
func charsetOf(contentType string) string {
	return parseMimeType(contentType).Params["charset"]
}

// guessFilename returns the base name of a source exposing Name(), the
// capability os.File has. Placeholder names like "<stdin>" are ignored.
func guessFilename(src interface{}) string {
	n, ok := src.(interface{ Name() string })
	if !ok {
		return ""
	}
	name := n.Name()
	if name == "" || strings.HasPrefix(name, "<") || strings.HasSuffix(name, ">") {
		return ""
	}
	return filepath.Base(name)
}

// guessContentType maps a filename extension to a MIME type, falling back
// to the generic default.
func guessContentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return defaultContentType
}

// contentDispositionHeader builds a Content-Disposition value. disptype must
// be a valid extension token (RFC 2183): "inline", "attachment", "form-data"
// or similar. Parameter values are quoted as needed.
func contentDispositionHeader(disptype string, params map[string]string) (string, error) {
	v := mime.FormatMediaType(disptype, params)
	if v == "" {
		return "", fmt.Errorf("bad content disposition type or parameters: %q %v", disptype, params)
	}
	return v, nil
}
