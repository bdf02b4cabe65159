package export

import (
	"context"

	"github.com/parquet-go/parquet-go"

	"aurora/internal/market"
)

// Parquet writes <dir>/<slot>.parquet.
type Parquet struct {
	Dir string
}

func (p Parquet) Export(_ context.Context, slot market.SlotID, bars []market.Bar) error {
	path, err := slotPath(p.Dir, slot, "parquet")
	if err != nil {
		return err
	}
	return parquet.WriteFile(path, bars)
}
