package domain

// InvalidURL is one entry of the invalid partition.
type InvalidURL struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// BatchCounts summarizes how a batch was resolved.
type BatchCounts struct {
	AutoApproved    int `json:"auto_approved"`
	PaywallBlocked  int `json:"paywall_blocked"`
	BrowserChecked  int `json:"browser_checked"`
	FallbackChecked int `json:"fallback_checked"`
	CacheHits       int `json:"cache_hits"`
	TotalChecked    int `json:"total_checked"`
}

// BatchResult is the aggregate outcome of one ValidateBatch call.
// ValidURLs and InvalidURLs follow input order.
type BatchResult struct {
	BatchID     string       `json:"batch_id"`
	ValidURLs   []string     `json:"valid_urls"`
	InvalidURLs []InvalidURL `json:"invalid_urls"`
	ScoredURLs  []Verdict    `json:"scored_urls"`
	Counts      BatchCounts  `json:"counts"`
}

// NewBatchResult partitions verdicts, which must be in input order.
func NewBatchResult(batchID string, verdicts []Verdict, counts BatchCounts) *BatchResult {
	result := &BatchResult{
		BatchID:     batchID,
		ValidURLs:   make([]string, 0, len(verdicts)),
		InvalidURLs: make([]InvalidURL, 0),
		ScoredURLs:  verdicts,
		Counts:      counts,
	}

	for _, v := range verdicts {
		if v.Valid {
			result.ValidURLs = append(result.ValidURLs, v.URL)
			continue
		}
		result.InvalidURLs = append(result.InvalidURLs, InvalidURL{URL: v.URL, Reason: v.ReasonCode})
	}
	result.Counts.TotalChecked = len(verdicts)

	return result
}

// InvalidSet returns the invalid URLs as a lookup set.
func (r *BatchResult) InvalidSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.InvalidURLs))
	for _, inv := range r.InvalidURLs {
		set[inv.URL] = struct{}{}
	}
	return set
}
