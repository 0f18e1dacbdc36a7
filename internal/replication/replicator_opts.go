package replication

import "github.com/pixil98/go-satchel/internal/item"

type ReplicatorOpt func(*Replicator)

// WithAuthority marks whether this process owns the authoritative state
func WithAuthority(authoritative bool) ReplicatorOpt {
	return func(r *Replicator) {
		r.authoritative = authoritative
	}
}

// WithUser sets what runs item-use requests
func WithUser(u User) ReplicatorOpt {
	return func(r *Replicator) {
		r.user = u
	}
}

// WithCatalog lets selection announcements carry the held item's visual
func WithCatalog(c item.Catalog) ReplicatorOpt {
	return func(r *Replicator) {
		r.catalog = c
	}
}
