// Package sanitize recovers a structured JSON payload from a model response that may be
// wrapped in code fences or surrounded by prose.
package sanitize

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// MaxExcerpt bounds the raw text carried by a MalformedResponseError
const MaxExcerpt = 1000

// Result is a successfully parsed payload
type Result struct {
	Success           bool   `json:"success"`
	Data              any    `json:"data"`
	Text              string `json:"-"` // the JSON text that was parsed
	RawResponseLength int    `json:"raw_response_length"`
	Repaired          bool   `json:"-"`
}

// Sanitize extracts and parses the JSON payload in raw.
// On failure the error is a *MalformedResponseError.
func Sanitize(raw string) (*Result, error) {
	text, repaired, err := locate(raw)
	if err != nil {
		return nil, err
	}

	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, newMalformed(err.Error(), raw)
	}

	return &Result{
		Success:           true,
		Data:              data,
		Text:              text,
		RawResponseLength: len(raw),
		Repaired:          repaired,
	}, nil
}

// SanitizeInto is Sanitize followed by decoding the payload into v.
// A payload that parses but does not fit v is also reported as malformed.
func SanitizeInto(raw string, v any) (*Result, error) {
	res, err := Sanitize(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(res.Text), v); err != nil {
		return nil, newMalformed(err.Error(), raw)
	}
	return res, nil
}

// Extract returns the candidate payload text without parsing it.
// Fenced responses yield the fenced body; otherwise the span from the first line
// opening a JSON structure to the last line closing one.
func Extract(raw string) string {
	text := strings.TrimSpace(raw)
	if inner, ok := StripFences(text); ok {
		return inner
	}
	if span, ok := lineSpan(text); ok {
		return span
	}
	if span, ok := byteSpan(text); ok {
		return span
	}
	return text
}

// StripFences removes a surrounding markdown code fence, with or without a language tag.
// It reports false when text contains no fence.
func StripFences(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return text, false
	}

	body := text[start+3:]
	// Drop the language tag, if any, up to the end of the fence line
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if !strings.ContainsAny(tag, "{[ ") {
			body = body[nl+1:]
		}
	} else {
		body = strings.TrimPrefix(body, "json")
	}

	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

// Excerpt returns at most MaxExcerpt characters of raw
func Excerpt(raw string) string {
	runes := []rune(raw)
	if len(runes) <= MaxExcerpt {
		return raw
	}
	return string(runes[:MaxExcerpt])
}

// locate picks the text to parse: the extracted candidate when valid, else the first
// complete JSON value in it, else a repaired candidate. A leading line that only looks
// like JSON, such as "[Note] here is the result:", is skipped and the rest retried.
func locate(raw string) (string, bool, error) {
	candidate := Extract(raw)
	var firstErr error
	for {
		idx := strings.IndexAny(candidate, "{[")
		if idx < 0 {
			if firstErr != nil {
				return "", false, newMalformed(firstErr.Error(), raw)
			}
			return "", false, newMalformed("no JSON object or array found in response", raw)
		}
		candidate = candidate[idx:]

		text, repaired, err := parseCandidate(candidate)
		if err == nil {
			return text, repaired, nil
		}
		if firstErr == nil {
			firstErr = err
		}

		rest, ok := skipProseLine(candidate)
		if !ok {
			return "", false, newMalformed(firstErr.Error(), raw)
		}
		candidate = rest
	}
}

func parseCandidate(candidate string) (string, bool, error) {
	if json.Valid([]byte(candidate)) {
		return candidate, false, nil
	}

	strictErr := json.Unmarshal([]byte(candidate), new(any))

	if first, ok := firstValue(candidate); ok {
		return first, false, nil
	}

	if repaired := Repair(candidate); json.Valid([]byte(repaired)) {
		return repaired, true, nil
	}

	return "", false, strictErr
}

// skipProseLine drops the first line of candidate when decoding fails with a syntax
// error inside that line. Truncated JSON fails at its end and is not skipped.
func skipProseLine(candidate string) (string, bool) {
	nl := strings.IndexByte(candidate, '\n')
	if nl < 0 {
		return "", false
	}

	err := json.NewDecoder(strings.NewReader(candidate)).Decode(new(any))
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) || syntaxErr.Offset > int64(nl) {
		return "", false
	}
	return candidate[nl+1:], true
}

// firstValue decodes the first complete JSON object or array from text,
// ignoring anything that follows it.
func firstValue(text string) (string, bool) {
	idx := strings.IndexAny(text, "{[")
	if idx < 0 {
		return "", false
	}
	dec := json.NewDecoder(strings.NewReader(text[idx:]))
	var msg json.RawMessage
	if err := dec.Decode(&msg); err != nil {
		return "", false
	}
	return string(bytes.TrimSpace(msg)), true
}

func lineSpan(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	start, end := -1, -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}
	for i := len(lines) - 1; i >= start; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasSuffix(trimmed, "}") || strings.HasSuffix(trimmed, "]") {
			end = i
			break
		}
	}
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(strings.Join(lines[start:end+1], "\n")), true
}

// byteSpan covers single-line responses such as `Here it is: {"a": 1}`
func byteSpan(text string) (string, bool) {
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "}]")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
