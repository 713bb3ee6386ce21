package patcher

import (
	"context"
	"fmt"
	"runtime"

	"github.com/retroenv/snespatch/internal/lclz"
	"golang.org/x/sync/errgroup"
)

// ExtractJob describes a compressed stream inside an image.
type ExtractJob struct {
	Offset int // PC offset of the stream
	Format lclz.Format
}

// Extracted is the decompressed content of a stream.
type Extracted struct {
	Job  ExtractJob
	Data []byte
}

// Extract decompresses the streams described by jobs concurrently. Results
// are returned in the order of jobs. The first failing job cancels the
// remaining ones.
func Extract(ctx context.Context, image []byte, jobs []ExtractJob) ([]Extracted, error) {
	results := make([]Extracted, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if job.Offset < 0 || job.Offset >= len(image) {
				return fmt.Errorf("stream offset 0x%x outside of image of size 0x%x", job.Offset, len(image))
			}

			data, err := lclz.Decompress(job.Format, image[job.Offset:])
			if err != nil {
				return fmt.Errorf("decompressing %s stream at 0x%x: %w", job.Format, job.Offset, err)
			}
			results[i] = Extracted{Job: job, Data: data}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
