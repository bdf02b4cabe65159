package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"aurora/internal/market"
)

// ReadCSV loads a slot file written by CSV. A missing file yields no bars.
func ReadCSV(dir string, slot market.SlotID) ([]market.Bar, error) {
	f, err := os.Open(filepath.Join(dir, slot.String()+".csv"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeCSV(f)
}

func decodeCSV(r io.Reader) ([]market.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 7
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read bar csv: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	out := make([]market.Bar, 0, len(rows)-1)
	for i, row := range rows[1:] {
		var vals [5]float64
		for j := range vals {
			v, err := strconv.ParseFloat(row[2+j], 64)
			if err != nil {
				return nil, fmt.Errorf("bar csv row %d: %w", i+1, err)
			}
			vals[j] = v
		}
		bar, _ := market.NewBar(row[1], vals[0], vals[1], vals[2], vals[3], vals[4])
		out = append(out, bar)
	}
	return out, nil
}
