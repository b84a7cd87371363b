package numeric

import "context"

// batchSize bounds the candidates scored per objective call so long searches
// notice cancellation.
const batchSize = 256

// RandomSearch scores a fixed budget of random candidates and keeps the
// best. Incumbents are scored too, so the result is never worse than the
// best known point.
type RandomSearch struct {
	cfg RandomSearchConfig
}

func (r *RandomSearch) Name() string { return RandomSearchName }

func (r *RandomSearch) Maximize(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var candidates [][]float64
	if r.cfg.UseLatinHypercube {
		candidates = LatinHypercube(r.cfg.NumSamples, req.Dims, req.Rand)
	} else {
		candidates = Uniform(r.cfg.NumSamples, req.Dims, req.Rand)
	}
	candidates = append(candidates, req.Incumbents...)

	var t tracker
	for start := 0; start < len(candidates); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := candidates[start:min(start+batchSize, len(candidates))]
		values, err := evaluate(ctx, req.Objective, batch)
		if err != nil {
			return nil, err
		}
		t.observe(batch, values)
	}
	return t.result()
}
