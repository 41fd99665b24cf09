package ledger

import (
	"context"
)

// Query serves paginated, filterable reads over the transaction log. The
// kind filter is applied before pagination; results are newest-first and
// taken from a single snapshot per request.
type Query struct {
	store Store
}

func NewQuery(store Store) *Query {
	return &Query{store: store}
}

type ListOptions struct {
	Kind  string
	Page  int
	Limit int
}

type History struct {
	Transactions []Transaction `json:"transactions"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
	Total        int           `json:"total"`
}

// List returns one page of the owner's history. A page past the end of the
// data yields an empty item list, not an error.
func (q *Query) List(ctx context.Context, ownerID string, opts ListOptions) (*History, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}

	transactions, total, err := q.store.Transactions(ctx, ownerID, opts.Kind, opts.Page, opts.Limit)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []Transaction{}
	}
	return &History{
		Transactions: transactions,
		Page:         opts.Page,
		Limit:        opts.Limit,
		Total:        total,
	}, nil
}
