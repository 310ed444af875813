package zerobuild

import (
	"github.com/pkg/errors"

	"zeroir/internal/ir"
	"zeroir/internal/loader"
)

// AddEntryBlock places a zero-length code block at the entry address and
// records it as the model's entry point. The true block length is
// resolved by later analysis.
func AddEntryBlock(m *ir.Model, r loader.Reader) error {
	entry := r.Entry()
	ranges := m.ByteRangesOn(entry)
	if len(ranges) == 0 {
		return errors.Wrapf(ErrEntryUnresolved, "%#x", entry)
	}
	br := ranges[0]
	block := br.AddCodeBlock(m, entry-br.Address, 0)
	m.SetEntryPoint(block)
	return nil
}
