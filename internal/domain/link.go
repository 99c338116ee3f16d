package domain

// LinkSpan is one markdown hyperlink occurrence. Start and End are byte
// offsets of the whole [anchor](url) match within its content.
type LinkSpan struct {
	Section    string `json:"section,omitempty"`
	AnchorText string `json:"anchor_text"`
	TargetURL  string `json:"target_url"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}
