package core

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"

	"github.com/huangsam/galvano/core/metrics"
	"github.com/huangsam/galvano/schema"
)

// Stream is a forward-only sequence of cycle records pulled from a sample source.
// Records arrive in increasing index order. A Stream must be closed, or drained to
// io.EOF, to release its source.
type Stream struct {
	src     SampleSource
	seg     *segmenter
	calc    metrics.Calculator
	workers int

	err       error // terminal; io.EOF after a clean finish
	closeOnce sync.Once
	closeErr  error

	mu      sync.Mutex
	emitted int64
	partial int64

	// parallel mode
	started  bool
	cancel   context.CancelFunc
	results  chan schema.CycleRecord
	prodDone chan struct{}
	prodErr  error
	reorder  map[int]schema.CycleRecord
	next     int
}

func newStream(src SampleSource, seg *segmenter, calc metrics.Calculator, workers int) *Stream {
	return &Stream{
		src:     src,
		seg:     seg,
		calc:    calc,
		workers: workers,
	}
}

// Next returns the next cycle record, or io.EOF when the source is exhausted.
// After any error, every later call returns the same error.
func (st *Stream) Next(ctx context.Context) (schema.CycleRecord, error) {
	if st.err != nil {
		return schema.CycleRecord{}, st.err
	}
	if st.workers > 1 {
		return st.nextParallel(ctx)
	}
	return st.nextSerial(ctx)
}

// All adapts the stream to a range-over-func iterator. Iteration stops after the
// first error, which is yielded once; io.EOF is not yielded.
func (st *Stream) All(ctx context.Context) iter.Seq2[schema.CycleRecord, error] {
	return func(yield func(schema.CycleRecord, error) bool) {
		for {
			rec, err := st.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(schema.CycleRecord{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Stats returns the counters of the run so far.
func (st *Stream) Stats() schema.RunStats {
	stats := st.seg.snapshot()
	st.mu.Lock()
	stats.CyclesEmitted = st.emitted
	stats.PartialCycles = st.partial
	st.mu.Unlock()
	return stats
}

// Close stops the run and releases the source. It is safe to call more than once,
// but not concurrently with Next; cancel the context passed to Next for that.
func (st *Stream) Close() error {
	if st.err == nil {
		st.err = errStreamClosed
	}
	st.release()
	return st.closeErr
}

var errStreamClosed = errors.New("stream closed")

func (st *Stream) release() {
	st.closeOnce.Do(func() {
		if st.cancel != nil {
			st.cancel()
			<-st.prodDone
			return // the producer closes the source itself
		}
		st.seg.discard()
		st.closeErr = closeSource(st.src)
	})
}

func (st *Stream) fail(err error) (schema.CycleRecord, error) {
	st.err = err
	st.release()
	return schema.CycleRecord{}, err
}

func (st *Stream) combine(part cyclePart) schema.CycleRecord {
	rec := st.calc.Combine(part.charge, part.discharge, part.index)
	rec.RestDuration = part.restDuration
	return rec
}

func (st *Stream) deliver(rec schema.CycleRecord) (schema.CycleRecord, error) {
	st.mu.Lock()
	st.emitted++
	if rec.Partial {
		st.partial++
	}
	st.mu.Unlock()
	return rec, nil
}

func (st *Stream) nextSerial(ctx context.Context) (schema.CycleRecord, error) {
	for {
		if part, ok := st.seg.pop(); ok {
			return st.deliver(st.combine(part))
		}
		if st.seg.finished() {
			return st.fail(io.EOF)
		}
		if err := ctx.Err(); err != nil {
			return st.fail(err)
		}
		if err := st.step(ctx); err != nil {
			return st.fail(err)
		}
	}
}

// step pulls one sample from the source into the segmenter.
func (st *Stream) step(ctx context.Context) error {
	sample, err := st.src.Next(ctx)
	if errors.Is(err, io.EOF) {
		st.seg.finish()
		return nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		st.seg.discard()
		return &SourceError{Err: err}
	}
	return st.seg.feed(sample)
}

// startParallel runs segmentation in a producer goroutine and Combine in a worker pool.
func (st *Stream) startParallel(ctx context.Context) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	st.started = true
	st.cancel = cancel
	st.reorder = make(map[int]schema.CycleRecord)
	st.results = make(chan schema.CycleRecord, st.workers)
	st.prodDone = make(chan struct{})

	parts := make(chan cyclePart, st.workers)

	go func() {
		defer close(st.prodDone)
		defer close(parts)
		defer func() { st.closeErr = closeSource(st.src) }()
		for {
			for part, ok := st.seg.pop(); ok; part, ok = st.seg.pop() {
				select {
				case parts <- part:
				case <-ctx.Done():
					st.seg.discard()
					st.prodErr = ctx.Err()
					return
				}
			}
			if st.seg.finished() {
				return
			}
			if err := ctx.Err(); err != nil {
				st.seg.discard()
				st.prodErr = err
				return
			}
			if err := st.step(ctx); err != nil {
				st.seg.discard()
				st.prodErr = err
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range st.workers {
		wg.Go(func() {
			for part := range parts {
				select {
				case st.results <- st.combine(part):
				case <-ctx.Done():
					return
				}
			}
		})
	}
	go func() {
		wg.Wait()
		<-st.prodDone
		close(st.results)
	}()
}

func (st *Stream) nextParallel(ctx context.Context) (schema.CycleRecord, error) {
	if !st.started {
		st.startParallel(ctx)
	}
	for {
		if err := ctx.Err(); err != nil {
			return st.fail(err)
		}
		if rec, ok := st.reorder[st.next]; ok {
			delete(st.reorder, st.next)
			st.next++
			return st.deliver(rec)
		}
		select {
		case rec, ok := <-st.results:
			if !ok {
				if st.prodErr != nil {
					return st.fail(st.prodErr)
				}
				return st.fail(io.EOF)
			}
			st.reorder[rec.Index] = rec
		case <-ctx.Done():
			return st.fail(ctx.Err())
		}
	}
}

func closeSource(src SampleSource) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
