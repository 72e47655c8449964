package types

// Envelope formats tell the consumer how to read Data
const (
	FormatJSON    = "json"
	FormatRawText = "raw_text"
)

// Envelope is the result handed to the presentation layer.
// Data is a *NormalizationPayload, a *ComparisonReport, or a verbatim string when Format is raw_text.
type Envelope struct {
	RunID             string   `json:"run_id"`
	Success           bool     `json:"success"`
	Format            string   `json:"format"`
	Data              any      `json:"data,omitempty"`
	Error             string   `json:"error,omitempty"`
	RawResponse       string   `json:"raw_response,omitempty"`
	RawResponseLength int      `json:"raw_response_length,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Normalized returns the envelope data as a normalization payload, or nil
func (e *Envelope) Normalized() *NormalizationPayload {
	if e == nil {
		return nil
	}
	p, _ := e.Data.(*NormalizationPayload)
	return p
}

// Report returns the envelope data as a comparison report, or nil
func (e *Envelope) Report() *ComparisonReport {
	if e == nil {
		return nil
	}
	r, _ := e.Data.(*ComparisonReport)
	return r
}
