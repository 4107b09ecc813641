package sources

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"csvhouse/internal/domain"
	"csvhouse/internal/etl"
)

// ── Synthetic Source ───────────────────────────────────────
// Generates a large table of random people, used to exercise the
// partitioned loader.

var (
	syntheticNames    = []string{"John", "Kate", "Anna", "Mike", "Valentina"}
	syntheticSurnames = []string{"Malkovich", "Darison", "Petrovich", "Adriano", "Tereshkova"}
)

const (
	DefaultSyntheticRows = 1_000_000

	minAge, maxAge       = 20, 60
	minSalary, maxSalary = 30000.0, 120000.0
)

type syntheticSource struct{}

func init() { etl.RegisterSource(&syntheticSource{}) }

func (s *syntheticSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "synthetic",
		Label: "Synthetic People",
		ConfigFields: []etl.ConfigField{
			{Key: "rows", Label: "Rows", Type: "number", Required: false, Default: "1000000", Help: "Number of rows to generate"},
			{Key: "seed", Label: "Seed", Type: "number", Required: false, Default: "0", Help: "Random seed; 0 seeds from the clock"},
		},
	}
}

func syntheticConfig(cfg etl.SourceConfig) (int, uint64, error) {
	rows, err := etl.ConfigInt(cfg, "rows", DefaultSyntheticRows)
	if err != nil {
		return 0, 0, domain.Wrap(domain.ErrSource, "generate", err)
	}
	if rows < 0 {
		return 0, 0, domain.Errorf(domain.ErrSource, "generate", "rows must not be negative, got %d", rows)
	}
	seed, err := etl.ConfigInt(cfg, "seed", 0)
	if err != nil {
		return 0, 0, domain.Wrap(domain.ErrSource, "generate", err)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return int(rows), uint64(seed), nil
}

func (s *syntheticSource) Discover(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, error) {
	if _, _, err := syntheticConfig(cfg); err != nil {
		return nil, err
	}
	return etl.RecordSchema, nil
}

func (s *syntheticSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan domain.Record, <-chan error) {
	out := make(chan domain.Record, 1024)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		rows, seed, err := syntheticConfig(cfg)
		if err != nil {
			errCh <- err
			return
		}
		if rows > 1<<31-1 {
			errCh <- domain.Errorf(domain.ErrSource, "generate", "rows %d overflow int32 ids", rows)
			return
		}
		gen := newGenerator(seed)
		for i := 1; i <= rows; i++ {
			select {
			case out <- gen.record(int32(i)):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh
}

type generator struct {
	rnd *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *generator) record(id int32) domain.Record {
	salary := float32(minSalary + g.rnd.Float64()*(maxSalary-minSalary))
	// float32 rounding can land exactly on the exclusive bound
	if salary >= maxSalary {
		salary = math.Nextafter32(maxSalary, 0)
	}
	return domain.Record{
		ID:      id,
		Name:    syntheticNames[g.rnd.IntN(len(syntheticNames))],
		Surname: syntheticSurnames[g.rnd.IntN(len(syntheticSurnames))],
		Age:     int32(minAge + g.rnd.IntN(maxAge-minAge)),
		Salary:  salary,
	}
}

// Generate returns rows synthetic records with ids 1..rows.
func Generate(rows int, seed uint64) domain.Table {
	gen := newGenerator(seed)
	table := make(domain.Table, rows)
	for i := range table {
		table[i] = gen.record(int32(i + 1))
	}
	return table
}
