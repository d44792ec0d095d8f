package orgloader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rpattn/crmdash/internal/domain"

	"github.com/graph-gophers/dataloader"
)

// Fetcher loads organizations by id in one round trip.
type Fetcher interface {
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Organization, error)
}

// OrgLoader batches organization lookups made while rendering one response.
type OrgLoader struct {
	Loader *dataloader.Loader
}

// NewOrgLoader returns a loader that batches organization lookups through repo.
func NewOrgLoader(repo Fetcher) *OrgLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				return failAll(len(keys), fmt.Errorf("invalid organization id %q: %w", k.String(), err))
			}
			ids[i] = id
		}

		orgs, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return failAll(len(keys), err)
		}

		byID := make(map[int64]domain.Organization, len(orgs))
		for _, o := range orgs {
			byID[o.ID] = o
		}

		// results must line up with keys
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if o, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: o}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(2*time.Millisecond))
	return &OrgLoader{Loader: loader}
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

// Key is the loader key for an organization id.
func Key(id int64) dataloader.Key {
	return dataloader.StringKey(strconv.FormatInt(id, 10))
}

// Names resolves display names for ids. Unknown ids map to "".
func Names(ctx context.Context, loader *dataloader.Loader, ids []int64) (map[int64]string, error) {
	thunks := make(map[int64]dataloader.Thunk, len(ids))
	for _, id := range ids {
		if _, ok := thunks[id]; ok {
			continue
		}
		thunks[id] = loader.Load(ctx, Key(id))
	}

	names := make(map[int64]string, len(thunks))
	for id, thunk := range thunks {
		data, err := thunk()
		if err != nil {
			return nil, err
		}
		if org, ok := data.(domain.Organization); ok {
			names[id] = org.Name
		} else {
			names[id] = ""
		}
	}
	return names, nil
}
