/*
   xgdctl - Xbox security sector tools
   Copyright (c) 2024, the xgdctl authors

   This file is part of xgdctl.

   xgdctl is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   xgdctl is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with xgdctl. If not, see <http://www.gnu.org/licenses/>.
*/

package batch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Task processes a single file, writing its diagnostics to out. A returned
// error marks the file as failed, but does not stop the batch.
type Task func(ctx context.Context, path string, out io.Writer) error

// Summary counts the outcome of a batch.
type Summary struct {
	Files   int
	Failed  int
	Skipped int
}

//
func (s *Summary) String() string {
	return fmt.Sprintf("%d files, %d failed, %d skipped",
		s.Files, s.Failed, s.Skipped)
}

/*
	Runner processes a list of files with up to Jobs tasks in parallel. The
	output of each file is collected in a buffer and written to Out as one
	block, so lines of different files never interleave. With Header set, each
	block starts with the path of its file.
*/
type Runner struct {
	Jobs   int
	Out    io.Writer
	Header bool
	//
	mutex sync.Mutex
}

//
func NewRunner(jobs int, out io.Writer, header bool) *Runner {
	if jobs < 1 {
		jobs = 1
	}
	return &Runner{Jobs: jobs, Out: out, Header: header}
}

/*
	Run runs task for every file. Cancelling ctx stops the batch before the
	next file is started; files already being processed run to completion. The
	returned error is ctx's error if the batch was cancelled.
*/
func (r *Runner) Run(ctx context.Context, files []string, task Task) (*Summary, error) {

	var failed, skipped int64

	g := &errgroup.Group{}
	g.SetLimit(r.Jobs)

	for _, f := range files {
		f := f
		if ctx.Err() != nil {
			atomic.AddInt64(&skipped, 1)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				atomic.AddInt64(&skipped, 1)
				return nil
			}
			var buf bytes.Buffer
			if r.Header {
				fmt.Fprintln(&buf, f)
			}
			if err := task(ctx, f, &buf); err != nil {
				atomic.AddInt64(&failed, 1)
				log.WithField("file", f).Debugf("task failed: %v", err)
			}
			r.flush(buf.Bytes())
			return nil
		})
	}

	g.Wait()

	s := &Summary{
		Files:   len(files),
		Failed:  int(atomic.LoadInt64(&failed)),
		Skipped: int(atomic.LoadInt64(&skipped)),
	}

	log.WithFields(log.Fields{
		"files":   s.Files,
		"failed":  s.Failed,
		"skipped": s.Skipped,
	}).Debug("batch done")

	return s, ctx.Err()
}

//
func (r *Runner) flush(b []byte) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.Out == nil {
		return
	}
	if _, err := r.Out.Write(b); err != nil {
		log.Errorf("error writing output: %v", err)
	}
}
