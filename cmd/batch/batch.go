// Package batch implements sequential, paced identification of many images.
package batch

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/trapcam/cmd/identify"
	v1 "github.com/tphakala/trapcam/internal/api/v1"
	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/imaging"
	"github.com/tphakala/trapcam/internal/logger"
	"github.com/tphakala/trapcam/internal/pipeline"
)

// Options controls pacing and retries
type Options struct {
	Station    string
	Pacing     time.Duration // minimum gap between images
	Retries    int           // extra attempts for a retryable failure
	RetryDelay time.Duration // wait before retry n is RetryDelay*(n+1)
	Normalizer imaging.Normalizer

	// sleep is replaced in tests
	sleep func(context.Context, time.Duration) error
}

// Line is one JSON line of batch output
type Line struct {
	File     string               `json:"file"`
	Attempts int                  `json:"attempts"`
	Result   *v1.IdentifyResponse `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Summary counts batch outcomes
type Summary struct {
	Total       int
	Identified  int
	NeedsReview int
	Failed      int
}

// Run identifies files one at a time, writing a JSON line per file. A failed
// file does not stop the batch; context cancellation does.
func Run(ctx context.Context, id identify.Identifier, files []string, opts Options, w io.Writer) (Summary, error) {
	log := logger.Global().Module("batch")
	enc := json.NewEncoder(w)

	var limiter *rate.Limiter
	if opts.Pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Pacing), 1)
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var summary Summary
	for _, file := range files {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return summary, err
			}
		}

		line := Line{File: file}
		var res *pipeline.Result
		var err error
		for attempt := 0; ; attempt++ {
			line.Attempts = attempt + 1
			res, err = identify.File(ctx, id, opts.Normalizer, file, opts.Station)
			if err == nil || !retryable(err) || attempt >= opts.Retries || ctx.Err() != nil {
				break
			}
			delay := opts.RetryDelay * time.Duration(attempt+1)
			log.Warn("retrying image",
				logger.String("file", file),
				logger.Int("attempt", attempt+1),
				logger.Duration("delay", delay),
				logger.Error(err))
			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				break
			}
		}

		summary.Total++
		switch {
		case err != nil:
			summary.Failed++
			line.Error = err.Error()
			log.Error("image failed", logger.String("file", file), logger.Error(err))
		case res.NeedsReview:
			summary.NeedsReview++
			line.Result = v1.NewIdentifyResponse(res)
		default:
			summary.Identified++
			line.Result = v1.NewIdentifyResponse(res)
		}

		if encErr := enc.Encode(line); encErr != nil {
			return summary, encErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, ctxErr
		}
	}

	log.Info("batch complete",
		logger.Int("total", summary.Total),
		logger.Int("identified", summary.Identified),
		logger.Int("needs_review", summary.NeedsReview),
		logger.Int("failed", summary.Failed))
	return summary, nil
}

// retryable failures are the ones the model gateway gave up on
func retryable(err error) bool {
	return errors.IsUpstreamTransient(err)
}

// Expand turns directories into their image files, sorted by name. Plain
// file arguments are kept as given.
func Expand(args []string, recursive bool) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.New(err).
				Component("cli").
				Category(errors.CategoryValidation).
				Context("path", arg).
				Build()
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if imaging.IsImageFile(d.Name()) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.New(err).
				Component("cli").
				Category(errors.CategoryFileIO).
				Context("path", arg).
				Build()
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
