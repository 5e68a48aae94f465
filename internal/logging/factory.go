package logging

import (
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the logger selected by backend ("slog" or "zap"). Development
// mode lowers the level to debug. The returned func flushes the logger and
// must be called before exit.
func New(backend string, development bool, w io.Writer) (Logger, func(), error) {
	switch backend {
	case "", "slog":
		level := slog.LevelInfo
		if development {
			level = slog.LevelDebug
		}
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
		return NewSlogLogger(slog.New(h)), func() {}, nil
	case "zap":
		if w == nil {
			return nil, nil, fmt.Errorf("zap init error: nil writer")
		}
		level := zapcore.InfoLevel
		if development {
			level = zapcore.DebugLevel
		}
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		zl := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level), zap.AddCaller(), zap.AddCallerSkip(1))
		l := NewZapLogger(zl)
		return l, func() { _ = l.Sync() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown log backend %q", backend)
	}
}
