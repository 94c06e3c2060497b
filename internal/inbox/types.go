package inbox

import "time"

// DiscoveredFile is an invoice file found while scanning the inbox directory.
type DiscoveredFile struct {
	Path    string
	Name    string
	Ext     string // lower case, with the leading dot
	ModTime time.Time
	Size    int64
}

// Result is what recognition extracted from one file.
type Result struct {
	Provider   string
	Concept    string
	Amount     float64
	Category   string
	Confidence float64 // 0..1
}

// ProcessResult summarizes a ProcessPending run.
type ProcessResult struct {
	Total     int
	Processed int
	Failed    int
	DocIDs    []string
}

// ProgressFunc is called while processing to report progress.
// current is the number of entries recognized so far, total is the total count.
type ProgressFunc func(current, total int)
