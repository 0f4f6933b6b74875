package adapter

import (
	"context"
	"iter"

	"github.com/roach88/replicate/internal/model"
)

// PageFunc fetches up to size records starting at offset start.
type PageFunc func(ctx context.Context, start, size int) ([]model.Metadata, error)

// Paginate turns a PageFunc into a lazy sequence. Pages are fetched only
// as the consumer advances; a short page ends the sequence. An error is
// yielded once and ends the sequence.
func Paginate(ctx context.Context, pageSize int, fetch PageFunc) iter.Seq2[model.Metadata, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return func(yield func(model.Metadata, error) bool) {
		start := 0
		for {
			if err := ctx.Err(); err != nil {
				yield(model.Metadata{}, err)
				return
			}
			page, err := fetch(ctx, start, pageSize)
			if err != nil {
				yield(model.Metadata{}, err)
				return
			}
			for _, md := range page {
				if !yield(md, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			start += len(page)
		}
	}
}
