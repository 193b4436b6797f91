package display

import (
	"fmt"
	"io"
	"os"
)

// Stdio prints each frame to a writer, stdout by default.
type Stdio struct {
	w io.Writer
}

// NewStdio returns a display writing to w, or os.Stdout when w is nil.
func NewStdio(w io.Writer) *Stdio {
	if w == nil {
		w = os.Stdout
	}
	return &Stdio{w: w}
}

func (s *Stdio) Render(f Frame) error {
	_, err := fmt.Fprintf(s.w, "Time: \t%d min\nDepth: \t%.1f m\nNDL: \t%s min\nTemp: \t%.1f C\n\n",
		int(f.Elapsed), f.Depth, f.NDLText(), f.Temperature)
	return err
}

func (s *Stdio) Close() error {
	return nil
}
