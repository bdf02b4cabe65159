package export

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"

	"aurora/internal/market"
)

// CSV writes <dir>/<slot>.csv with a leading row-index column.
type CSV struct {
	Dir string
}

func (c CSV) Export(_ context.Context, slot market.SlotID, bars []market.Bar) error {
	path, err := slotPath(c.Dir, slot, "csv")
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	if err := w.Write([]string{"", "date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for i, b := range bars {
		if err := w.Write([]string{
			strconv.Itoa(i),
			b.Stamp,
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			floatStr(b.Volume),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
