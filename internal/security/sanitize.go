package security

import (
	"bytes"
	"encoding/json"
	"reflect"
	"regexp"
	"strings"

	"github.com/jrschumacher/complyhub/internal/logger"
)

var (
	scriptTagPattern    = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	javascriptURIScheme = regexp.MustCompile(`(?i)javascript\s*:`)
	inlineEventHandler  = regexp.MustCompile(`(?i)on\w+\s*=`)
)

// SanitizeForStorage serializes data to text and strips script tags,
// javascript: URIs and inline on*= handlers. Strings are used verbatim,
// everything else is JSON encoded without HTML escaping. nil, typed nil
// pointers, maps and slices, and values that fail to encode produce "".
//
// This is a best-effort filter for values written to client storage, not
// an HTML sanitizer. Output must still be escaped when rendered.
func SanitizeForStorage(data any) string {
	if isNil(data) {
		return ""
	}

	var text string
	switch v := data.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			logger.Warn("Failed to serialize value for storage", "error", err)
			return ""
		}
		text = strings.TrimSuffix(buf.String(), "\n")
	}

	text = scriptTagPattern.ReplaceAllString(text, "")
	text = javascriptURIScheme.ReplaceAllString(text, "")
	text = inlineEventHandler.ReplaceAllString(text, "")
	return text
}

func isNil(data any) bool {
	if data == nil {
		return true
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
