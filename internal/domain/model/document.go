package model

// DocumentKind tags the structurally different legal documents the bot can draft.
type DocumentKind string

const (
	DocumentKindClaim     DocumentKind = "claim"
	DocumentKindComplaint DocumentKind = "complaint"
	DocumentKindContract  DocumentKind = "contract"
)

type DocumentSection struct {
	Heading string   `json:"heading"`
	Body    string   `json:"body"`
	Items   []string `json:"items,omitempty"`
}

// Document is the renderer-agnostic description of a drafted legal document.
type Document struct {
	Kind     DocumentKind      `json:"kind"`
	Title    string            `json:"title"`
	Parties  map[string]string `json:"parties,omitempty"`
	Sections []DocumentSection `json:"sections"`
}
