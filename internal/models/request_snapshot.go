package models

// RequestSnapshot is the gate's capture of an inbound request, taken once
// and shared by the signature scan and event recording. Body holds at most
// the configured scan cap; the remainder of the stream is never buffered.
type RequestSnapshot struct {
	SourceAddress string
	Method        string
	Path          string
	RawQuery      string
	UserAgent     string
	Headers       map[string]string
	Body          string
	BodyTruncated bool
}

// URL reconstructs the request target including the query string
func (s RequestSnapshot) URL() string {
	if s.RawQuery == "" {
		return s.Path
	}
	return s.Path + "?" + s.RawQuery
}

// Metadata converts the snapshot to the persisted request capture
func (s RequestSnapshot) Metadata() RequestMetadata {
	return RequestMetadata{
		Method:    s.Method,
		URL:       s.URL(),
		UserAgent: s.UserAgent,
		Headers:   s.Headers,
		Payload:   s.Body,
	}
}
