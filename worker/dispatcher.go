// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragflow/pipeline"
)

// Runner is the slice of the pipeline the dispatcher invokes per job.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job) (*pipeline.Outcome, error)
}

// Dispatcher runs jobs on a bounded worker pool. The pool size is the
// concurrency ceiling: Dispatch blocks when all workers are busy, which is
// what stops the consumer from pulling further broker messages.
type Dispatcher struct {
	pool   *ants.Pool
	runner Runner
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher with size workers.
func NewDispatcher(size int, runner Runner) (*Dispatcher, error) {
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		pool:   pool,
		runner: runner,
		logger: slog.Default().With("component", "worker"),
	}, nil
}

// Dispatch submits a job, blocking until a worker is free. done is invoked
// with the runner's result from the worker goroutine.
func (d *Dispatcher) Dispatch(ctx context.Context, job pipeline.Job, done func(*pipeline.Outcome, error)) error {
	d.wg.Add(1)
	err := d.pool.Submit(func() {
		defer d.wg.Done()
		outcome, err := d.runner.Run(ctx, job)
		if err != nil {
			d.logger.Error("run did not reach a terminal state", "error", err)
		}
		done(outcome, err)
	})
	if err != nil {
		d.wg.Done()
		return err
	}
	return nil
}

// InFlight returns the number of currently running jobs.
func (d *Dispatcher) InFlight() int {
	return d.pool.Running()
}

// Drain waits for every dispatched job to finish.
func (d *Dispatcher) Drain() {
	d.wg.Wait()
}

// Release drains the dispatcher and frees the pool.
func (d *Dispatcher) Release() {
	d.Drain()
	d.pool.Release()
}
