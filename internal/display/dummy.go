package display

import "go.uber.org/zap"

// Dummy discards frames, logging them at debug level.
type Dummy struct {
	logger *zap.SugaredLogger
}

func NewDummy(logger *zap.SugaredLogger) *Dummy {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dummy{logger: logger}
}

func (d *Dummy) Render(f Frame) error {
	d.logger.Debugw("frame", "ndl", f.NDLText(), "elapsed", f.Elapsed, "depth", f.Depth, "temperature", f.Temperature)
	return nil
}

func (d *Dummy) Close() error {
	return nil
}
