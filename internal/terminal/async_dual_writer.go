package terminal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avoronin/termfix/internal/assist"
)

// AsyncDualWriter forwards shell output to the WebSocket synchronously and
// to the failure-detection pipeline asynchronously, so slow classification
// or an in-flight suggestion request can never stall terminal rendering.
type AsyncDualWriter struct {
	wsWriter   *wsWriter
	pipeline   *assist.Pipeline
	outputChan chan []byte
	userID     string
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewAsyncDualWriter creates the writer and starts its background processor.
func NewAsyncDualWriter(ws *wsWriter, pipeline *assist.Pipeline, userID string, logger *slog.Logger) *AsyncDualWriter {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	dw := &AsyncDualWriter{
		wsWriter:   ws,
		pipeline:   pipeline,
		outputChan: make(chan []byte, 100),
		userID:     userID,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}

	dw.wg.Add(1)
	go dw.processOutput()

	return dw
}

// Write implements io.Writer. The WebSocket write happens inline; the
// pipeline copy is queued, dropping the oldest chunk under backpressure.
func (w *AsyncDualWriter) Write(p []byte) (int, error) {
	n, err := w.wsWriter.Write(p)
	if err != nil {
		return n, err
	}

	data := make([]byte, len(p))
	copy(data, p)

	select {
	case w.outputChan <- data:
	case <-w.ctx.Done():
	default:
		w.logger.Warn("[ASYNC-WRITER] Queue full, applying backpressure",
			"user_id", w.userID,
			"queue_len", len(w.outputChan),
		)

		// Remove oldest chunk to make room.
		select {
		case <-w.outputChan:
		default:
		}

		select {
		case w.outputChan <- data:
		case <-w.ctx.Done():
		default:
			w.logger.Warn("[ASYNC-WRITER] Failed to queue after backpressure",
				"user_id", w.userID,
			)
		}
	}

	return n, nil
}

// processOutput feeds queued chunks through the pipeline in background.
func (w *AsyncDualWriter) processOutput() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case data := <-w.outputChan:
			start := time.Now()
			w.pipeline.HandleOutput(data)
			if duration := time.Since(start); duration > 100*time.Millisecond {
				w.logger.Warn("[ASYNC-WRITER] Slow output processing",
					"user_id", w.userID,
					"duration_ms", duration.Milliseconds(),
				)
			}
		}
	}
}

// Close shuts down the async writer gracefully.
func (w *AsyncDualWriter) Close() error {
	w.cancel()

	// Drain the queue to unblock the processor if it is waiting on a send.
	for {
		select {
		case <-w.outputChan:
			continue
		default:
		}
		break
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		w.logger.Warn("[ASYNC-WRITER] Processor shutdown timeout",
			"user_id", w.userID,
		)
	}

	return nil
}
