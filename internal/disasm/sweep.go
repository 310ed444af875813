package disasm

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"zeroir/internal/ir"
)

// ErrUnsupportedISA is returned when a model is not x86 code.
var ErrUnsupportedISA = errors.New("disasm: unsupported ISA")

// Mode returns the decoder mode for isa.
func Mode(isa ir.ISA) (int, error) {
	switch isa {
	case ir.ISAX64:
		return 64, nil
	case ir.ISAIA32:
		return 32, nil
	}
	return 0, errors.Wrap(ErrUnsupportedISA, isa.String())
}

// SweepModel decodes the byte range of every executable section in
// parallel, with at most workers sweeps in flight (unbounded when
// workers < 1). A zero mode is derived from the model's ISA. The result
// is ordered by address.
func SweepModel(ctx context.Context, m *ir.Model, mode, workers int) (Stream, error) {
	if mode == 0 {
		var err error
		if mode, err = Mode(m.ISA); err != nil {
			return nil, err
		}
	}
	var ranges []*ir.ByteRange
	for _, s := range m.Sections() {
		if !s.IsFlagSet(ir.SectionExecutable) {
			continue
		}
		if br := s.ByteRange(); br != nil && br.Size() > 0 {
			ranges = append(ranges, br)
		}
	}

	results := make([]Stream, len(ranges))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, br := range ranges {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Sweep(br.Bytes(), br.Address, mode)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out Stream
	for _, r := range results {
		out = append(out, r...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].VA < out[j].VA })
	return out, nil
}
