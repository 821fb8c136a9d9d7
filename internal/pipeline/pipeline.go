// Package pipeline runs streaming stages connected by io.Pipes.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Stage transforms data from r to w. The first stage gets a nil r; the last stage gets the
// sink, or a nil w when there is none.
type Stage struct {
	Name string
	Run  func(ctx context.Context, r io.Reader, w io.Writer) error
}

// Run connects stages with io.Pipes and writes the last stage's output to sink, which may be
// nil. The first failing stage cancels the rest; its error is returned prefixed with its name.
func Run(ctx context.Context, sink io.Writer, stages ...Stage) error {
	if len(stages) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readers := make([]*io.PipeReader, len(stages)-1)
	writers := make([]*io.PipeWriter, len(stages)-1)
	for i := range readers {
		readers[i], writers[i] = io.Pipe()
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			for i := range readers {
				_ = readers[i].CloseWithError(err)
				_ = writers[i].CloseWithError(err)
			}
			cancel()
		})
	}

	for i, st := range stages {
		var (
			r io.Reader
			w io.Writer
		)
		if i > 0 {
			r = readers[i-1]
		}
		if i < len(writers) {
			w = writers[i]
		} else if sink != nil {
			w = sink
		}

		wg.Add(1)
		go func(i int, st Stage, r io.Reader, w io.Writer) {
			defer wg.Done()
			if err := st.Run(ctx, r, w); err != nil {
				fail(fmt.Errorf("%s: %w", st.Name, err))
				return
			}
			if i < len(writers) {
				_ = writers[i].Close()
			}
		}(i, st, r, w)
	}

	wg.Wait()
	return firstErr
}
