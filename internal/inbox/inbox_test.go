package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/atlas/internal/model"
	"github.com/theirongolddev/atlas/internal/store"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		path := filepath.Join(dir, n)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(&store.Memory{}, store.WithClock(func() time.Time { return testNow }))
}

type fixedOCR struct {
	res Result
	err error
}

func (f fixedOCR) Recognize(context.Context, model.InboxEntry) (Result, error) { return f.res, f.err }

func TestScanDir(t *testing.T) {
	dir := writeFiles(t, "a.pdf", "b.JPG", "notes.txt", ".hidden.pdf", "sub/c.png", ".git/d.pdf")

	files, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3: %+v", len(files), files)
	}
	if files[1].Ext != ".jpg" {
		t.Errorf("Ext = %q, want .jpg", files[1].Ext)
	}

	missing, err := ScanDir(filepath.Join(dir, "nope"))
	if err != nil || missing != nil {
		t.Fatalf("ScanDir(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestSyncRegistersNewFilesOnce(t *testing.T) {
	dir := writeFiles(t, "factura1.pdf", "factura2.png")
	s := newStore(t)
	p := NewProcessor(s, NewSimulated(1))

	added, err := p.Sync(dir)
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("added %d entries, want 2", len(added))
	}

	again, err := p.Sync(dir)
	if err != nil {
		t.Fatalf("second Sync error: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second Sync added %d entries, want 0", len(again))
	}
	if n := len(s.State().Inbox); n != 3 {
		t.Fatalf("inbox has %d entries, want 3 (demo + 2)", n)
	}
}

func TestProcessCreatesDocument(t *testing.T) {
	s := newStore(t)
	p := NewProcessor(s, fixedOCR{res: Result{
		Provider: "Leroy Merlin", Amount: 1200, Category: "mejoras", Confidence: 0.9,
	}})

	doc, err := p.Process("inbox-001")
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if doc.Status != model.StatusPending {
		t.Errorf("Status = %q, want %q", doc.Status, model.StatusPending)
	}
	if doc.FiscalTreatment != model.TreatmentCapex || doc.AmortizationYears != 10 {
		t.Errorf("treatment = %q/%d, want capex/10", doc.FiscalTreatment, doc.AmortizationYears)
	}
	if doc.Category != "Mejoras" {
		t.Errorf("Category = %q, want Mejoras", doc.Category)
	}

	st := s.State()
	entry := st.Inbox[st.InboxIndex("inbox-001")]
	if doc.Source != model.SourceInbox {
		t.Errorf("Source = %q, want %q", doc.Source, model.SourceInbox)
	}
	if doc.Concept != entry.FileName {
		t.Errorf("Concept = %q, want file name %q", doc.Concept, entry.FileName)
	}
	if entry.Status != model.InboxProcessed || entry.DocumentID != doc.ID {
		t.Errorf("entry = %+v, want processed with document %s", entry, doc.ID)
	}

	if _, err := p.Process("inbox-001"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("second Process error = %v, want ErrAlreadyProcessed", err)
	}
	if _, err := p.Process("inbox-404"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Process(missing) error = %v, want ErrNotFound", err)
	}
}

func TestProcessLowConfidenceNeedsReview(t *testing.T) {
	s := newStore(t)
	p := NewProcessor(s, fixedOCR{res: Result{Provider: "X", Amount: 10, Category: "Otros", Confidence: 0.61}})

	doc, err := p.Process("inbox-001")
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if doc.Status != model.StatusReview {
		t.Errorf("Status = %q, want %q", doc.Status, model.StatusReview)
	}
	if doc.IsDeductible {
		t.Error("Otros should not be deductible")
	}
}

func TestProcessFailureMarksError(t *testing.T) {
	s := newStore(t)
	p := NewProcessor(s, fixedOCR{err: errors.New("blurry")})

	if _, err := p.Process("inbox-001"); err == nil {
		t.Fatal("Process error = nil, want failure")
	}
	st := s.State()
	if got := st.Inbox[st.InboxIndex("inbox-001")].Status; got != model.InboxError {
		t.Errorf("Status = %q, want %q", got, model.InboxError)
	}
}

func TestProcessPending(t *testing.T) {
	dir := writeFiles(t, "a.pdf", "b.pdf", "c.jpeg")
	s := newStore(t)
	p := NewProcessor(s, NewSimulated(42))
	if _, err := p.Sync(dir); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int64
	res, err := p.ProcessPending(context.Background(), func(current, total int) {
		calls.Add(1)
		if total != 4 {
			t.Errorf("total = %d, want 4", total)
		}
	})
	if err != nil {
		t.Fatalf("ProcessPending error: %v", err)
	}
	if res.Total != 4 || res.Processed != 4 || res.Failed != 0 {
		t.Fatalf("result = %+v, want 4 processed", res)
	}
	if n := calls.Load(); n != 4 {
		t.Errorf("progress called %d times, want 4", n)
	}
	for _, e := range s.State().Inbox {
		if e.Status != model.InboxProcessed {
			t.Errorf("entry %s status = %q", e.ID, e.Status)
		}
	}
}

func TestSimulatedIsRepeatable(t *testing.T) {
	entry := model.InboxEntry{FileName: "f.pdf"}
	a, b := NewSimulated(7), NewSimulated(7)
	for i := 0; i < 5; i++ {
		ra, _ := a.Recognize(context.Background(), entry)
		rb, _ := b.Recognize(context.Background(), entry)
		if ra != rb {
			t.Fatalf("run %d: %+v != %+v", i, ra, rb)
		}
		if ra.Amount <= 0 || ra.Confidence < 0.6 || ra.Confidence > 0.99 {
			t.Fatalf("implausible result %+v", ra)
		}
	}

	if _, err := a.Recognize(context.Background(), model.InboxEntry{FileName: "f.docx"}); err == nil {
		t.Fatal("Recognize(.docx) error = nil, want unsupported")
	}
}
