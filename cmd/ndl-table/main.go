// ndl-table prints the no-decompression limit of square profiles over a
// range of depths, starting from surface-saturated tissues.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/internal/log"
)

func main() {
	model := flag.String("model", "Buhlmann", "Decompression model")
	from := flag.Float64("from", 9, "Shallowest depth in metres")
	to := flag.Float64("to", 42, "Deepest depth in metres")
	step := flag.Float64("step", 3, "Depth step in metres")
	descent := flag.Float64("descent-rate", 18, "Descent rate in metres per minute")
	debug := flag.Bool("debug", false, "Log the NDL search")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *step <= 0 || *descent <= 0 || *from < 0 || *to < *from {
		log.Errorf("invalid depth range %.1f..%.1f step %.1f, descent rate %.1f", *from, *to, *step, *descent)
		os.Exit(1)
	}

	kind, err := deco.ParseKind(*model)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	rows, err := table(kind, *from, *to, *step, *descent)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "depth (m)\tNDL (min)\t")
	for _, r := range rows {
		ndl := fmt.Sprint(r.ndl)
		if deco.Unlimited(r.ndl) {
			ndl = "N/A"
		}
		fmt.Fprintf(w, "%.0f\t%s\t\n", r.depth, ndl)
	}
	w.Flush()
}

type row struct {
	depth float64
	ndl   int
}

// table descends to each depth at descentRate and reports the NDL on arrival.
func table(kind deco.Kind, from, to, step, descentRate float64) ([]row, error) {
	var rows []row
	for depth := from; depth <= to+1e-9; depth += step {
		m, err := deco.New(kind, log.Named("deco"))
		if err != nil {
			return nil, err
		}
		m.Reset(deco.AtmosphericPressure, 0)

		descent := depth / descentRate
		if descent <= 0 {
			descent = 1.0 / 60
		}
		if err := m.Update(deco.AtmosphericPressure+depth/deco.MetresPerBar, descent); err != nil {
			return nil, fmt.Errorf("depth %.1f m: %w", depth, err)
		}

		ndl, err := m.NDL()
		if err != nil {
			return nil, fmt.Errorf("depth %.1f m: %w", depth, err)
		}
		rows = append(rows, row{depth: depth, ndl: ndl})
	}
	return rows, nil
}
