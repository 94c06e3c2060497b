package inbox

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/atlas/internal/model"
)

// Recognizer extracts invoice data from an inbox entry.
type Recognizer interface {
	Recognize(ctx context.Context, entry model.InboxEntry) (Result, error)
}

type template struct {
	provider string
	concept  string
	category string
	min, max float64
}

// catalogue feeds the simulated recognizer.
var catalogue = []template{
	{"Iberdrola Clientes S.A.U.", "Factura electricidad", "Suministros", 45, 160},
	{"Endesa Energía", "Factura luz", "Suministros", 40, 150},
	{"Naturgy", "Factura gas", "Suministros", 30, 120},
	{"Aguas de Valencia", "Consumo de agua", "Suministros", 20, 90},
	{"Mapfre Seguros", "Prima seguro multirriesgo", "Seguros", 180, 420},
	{"Comunidad de Propietarios", "Cuota de comunidad", "Comunidad", 60, 260},
	{"Fontanería Ruiz", "Reparación", "Reparaciones", 80, 450},
	{"Leroy Merlin", "Material de reforma", "Mejoras", 150, 2400},
}

// Simulated is a Recognizer that invents plausible invoices. It does not read
// the file. Safe for concurrent use.
type Simulated struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated returns a recognizer seeded with seed, so runs are repeatable.
func NewSimulated(seed uint64) *Simulated {
	return &Simulated{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Recognize picks a provider from the catalogue with a random amount (rounded
// to cents) and confidence between 0.60 and 0.99.
func (s *Simulated) Recognize(ctx context.Context, entry model.InboxEntry) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !Supported(entry.FileName) {
		return Result{}, fmt.Errorf("unsupported file type: %s", entry.FileName)
	}

	s.mu.Lock()
	t := catalogue[s.rng.IntN(len(catalogue))]
	amount := t.min + s.rng.Float64()*(t.max-t.min)
	confidence := 0.60 + s.rng.Float64()*0.39
	s.mu.Unlock()

	return Result{
		Provider:   t.provider,
		Concept:    t.concept,
		Amount:     decimal.NewFromFloat(amount).Round(2).InexactFloat64(),
		Category:   t.category,
		Confidence: decimal.NewFromFloat(confidence).Round(2).InexactFloat64(),
	}, nil
}
