package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// exportColumns matches the column order of the lab's historical TSV files.
var exportColumns = []string{
	"subject", "block", "block_type", "trial",
	"t_ss", "t_ll", "r_ss", "r_ll",
	"resp_ss", "rt",
}

// WriteTSV writes the main (optimal) trials of a run as tab-separated rows.
// Tutorial trials are not part of the export. The block column is the
// session index.
func WriteTSV(w io.Writer, run *Run, trials []Trial) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(exportColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range trials {
		if t.Mode != "optimal" {
			continue
		}
		row := []string{
			run.Participant,
			strconv.Itoa(t.Session),
			"ado",
			strconv.Itoa(t.Index),
			formatFloat(t.TSS),
			formatFloat(t.TLL),
			formatFloat(t.RSS),
			formatFloat(t.RLL),
			strconv.Itoa(t.RespSS),
			formatFloat(t.RT),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write trial %d: %w", t.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
