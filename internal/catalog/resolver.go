package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

type resolverStore interface {
	Kind() Kind
	GetByID(ctx context.Context, userID, id int) (*Item, error)
	ExactMatch(ctx context.Context, userID int, name string) (*Item, error)
	Suggest(ctx context.Context, userID int, query string, limit int) ([]Item, error)
}

// Resolver turns item references into catalog items. A reference is
// an explicit id, a free-form name, or both. The id always wins, even
// when the name would resolve to a different item; the name cascade
// (numeric id, exact match in any case, fragment of a name) only runs
// when no id was given or the id found nothing.
type Resolver struct {
	store resolverStore
}

func NewResolver(store resolverStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve looks up an item by explicit id and/or name. Pass itemID 0
// when no id was given.
func (r *Resolver) Resolve(ctx context.Context, userID, itemID int, name string) (*Item, error) {
	if itemID > 0 {
		item, err := r.store.GetByID(ctx, userID, itemID)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrUnresolved
	}

	if id, err := strconv.Atoi(name); err == nil {
		item, err := r.store.GetByID(ctx, userID, id)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	item, err := r.store.ExactMatch(ctx, userID, name)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	suggestions, err := r.store.Suggest(ctx, userID, name, 1)
	if err != nil {
		return nil, err
	}
	if len(suggestions) > 0 {
		log.Tracef("resolved %s name [%s] via fuzzy match to [%s]",
			r.store.Kind(), name, suggestions[0].Name)
		return &suggestions[0], nil
	}

	return nil, ErrUnresolved
}
