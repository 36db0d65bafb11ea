package ingest

// Report summarizes one collection run.
type Report struct {
	RunID      string `json:"run_id"`
	Scraped    int    `json:"scraped"`
	Saved      int    `json:"saved"`
	Duplicates int    `json:"duplicates"`
	Invalid    int    `json:"invalid"`
	Failures   int    `json:"failures"`
}
