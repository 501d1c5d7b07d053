package imagery

import (
	"context"
	"errors"

	"github.com/soundprediction/labelkit/pkg/utils"
)

var errNoImage = errors.New("fetcher returned no image")

// FetchAll fetches urls with at most workers concurrent requests. Results and
// errors are indexed like urls; a URL repeated in the input is fetched once.
// A fetcher returning neither an image nor an error counts as a failed fetch.
func FetchAll(ctx context.Context, fetcher Fetcher, urls []string, workers int) ([]*Image, []error) {
	if len(urls) == 0 {
		return nil, nil
	}

	unique := make([]string, 0, len(urls))
	slot := make(map[string]int, len(urls))
	for _, u := range urls {
		if _, ok := slot[u]; !ok {
			slot[u] = len(unique)
			unique = append(unique, u)
		}
	}

	pool := utils.NewWorkerPool(workers, func(ctx context.Context, u string) (*Image, error) {
		img, err := fetcher.Fetch(ctx, u)
		if err == nil && img == nil {
			return nil, &FetchError{URL: u, Err: errNoImage}
		}
		return img, err
	})
	fetched, fetchErrs := pool.ProcessItems(ctx, unique)

	images := make([]*Image, len(urls))
	errs := make([]error, len(urls))
	for i, u := range urls {
		images[i] = fetched[slot[u]]
		errs[i] = fetchErrs[slot[u]]
	}
	return images, errs
}
