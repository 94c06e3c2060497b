// Package inbox turns invoice files dropped into a directory into documents.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/atlas/internal/config"
	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/store"
)

// ReviewThreshold is the confidence below which a recognized document is
// flagged for review instead of left pending.
const ReviewThreshold = 0.75

// ErrAlreadyProcessed is returned when processing an entry twice.
var ErrAlreadyProcessed = errors.New("inbox entry already processed")

// Processor registers inbox files in the store and recognizes them.
type Processor struct {
	store      *store.Store
	ocr        Recognizer
	categories config.CategoryOverrides
	log        *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithCategories applies category overrides when deriving fiscal treatment.
func WithCategories(c config.CategoryOverrides) Option {
	return func(p *Processor) { p.categories = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.log = l }
}

// NewProcessor returns a processor writing to s.
func NewProcessor(s *store.Store, ocr Recognizer, opts ...Option) *Processor {
	p := &Processor{store: s, ocr: ocr, log: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Sync scans dir and registers files that are not in the inbox yet, matched
// by path. It returns the new entries.
func (p *Processor) Sync(dir string) ([]model.InboxEntry, error) {
	files, err := ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	known := make(map[string]struct{})
	for _, e := range p.store.State().Inbox {
		if e.Path != "" {
			known[e.Path] = struct{}{}
		}
	}

	var added []model.InboxEntry
	for _, f := range files {
		if _, ok := known[f.Path]; ok {
			continue
		}
		e, err := p.store.AddInboxEntry(model.InboxEntry{
			FileName:   f.Name,
			Path:       f.Path,
			ReceivedAt: f.ModTime,
		})
		if err != nil {
			return added, err
		}
		added = append(added, e)
	}
	return added, nil
}

// Process recognizes one entry and stores the resulting document. Failed
// recognitions mark the entry as errored.
func (p *Processor) Process(id string) (model.Document, error) {
	st := p.store.State()
	i := st.InboxIndex(id)
	if i < 0 {
		return model.Document{}, fmt.Errorf("inbox entry %q: %w", id, store.ErrNotFound)
	}
	entry := st.Inbox[i]
	if entry.Status == model.InboxProcessed {
		return model.Document{}, fmt.Errorf("%w: %s", ErrAlreadyProcessed, id)
	}

	res, err := p.ocr.Recognize(context.Background(), entry)
	return p.commit(entry, res, err)
}

// ProcessPending recognizes every pending entry with a bounded worker pool
// and then commits the documents one by one.
func (p *Processor) ProcessPending(ctx context.Context, progressFn ProgressFunc) (ProcessResult, error) {
	var pending []model.InboxEntry
	for _, e := range p.store.State().Inbox {
		if e.Status == model.InboxPending {
			pending = append(pending, e)
		}
	}

	result := ProcessResult{Total: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(pending) {
		numWorkers = len(pending)
	}

	type outcome struct {
		res Result
		err error
	}
	work := make(chan int, len(pending))
	outcomes := make([]outcome, len(pending))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range pending {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				res, err := p.ocr.Recognize(ctx, pending[idx])
				outcomes[idx] = outcome{res: res, err: err}
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(pending))
				}
			}
		}()
	}

	wg.Wait()

	for i, o := range outcomes {
		doc, err := p.commit(pending[i], o.res, o.err)
		if err != nil {
			result.Failed++
			continue
		}
		result.Processed++
		result.DocIDs = append(result.DocIDs, doc.ID)
	}
	return result, ctx.Err()
}

func (p *Processor) commit(entry model.InboxEntry, res Result, recognizeErr error) (model.Document, error) {
	if recognizeErr != nil {
		p.log.Warn("recognizing inbox entry", "id", entry.ID, "file", entry.FileName, "err", recognizeErr)
		if err := p.store.UpdateInboxEntry(entry.ID, func(e *model.InboxEntry) { e.Status = model.InboxError }); err != nil {
			return model.Document{}, err
		}
		return model.Document{}, fmt.Errorf("recognizing %s: %w", entry.FileName, recognizeErr)
	}
	return p.store.ProcessInboxEntry(entry.ID, p.document(entry, res))
}

func (p *Processor) document(entry model.InboxEntry, res Result) model.Document {
	at := entry.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	cat := p.categories.ResolveCategory(res.Category, at)

	status := model.StatusPending
	if res.Confidence < ReviewThreshold {
		status = model.StatusReview
	}
	concept := entry.FileName
	if res.Concept != "" {
		concept = res.Concept + " (" + entry.FileName + ")"
	}
	doc := model.Document{
		Provider:        res.Provider,
		Concept:         concept,
		Amount:          res.Amount,
		Date:            at,
		Category:        cat.Name,
		Status:          status,
		IsDeductible:    cat.Deductible,
		FiscalTreatment: model.FiscalTreatment(cat.Treatment),
		Source:          model.SourceInbox,
		OCRConfidence:   res.Confidence,
	}
	if cat.Treatment == config.TreatmentCapex {
		doc.AmortizationYears = cat.AmortizationYears
	}
	return doc
}
