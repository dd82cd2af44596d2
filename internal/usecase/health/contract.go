package health

import "context"

// DBPinger checks document store connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// CollectionCounter lists the collections of the document store.
type CollectionCounter interface {
	ListCollectionNames(ctx context.Context) ([]string, error)
}

// CachePinger checks cache connectivity.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// TranslatorChecker verifies the translation provider is reachable.
type TranslatorChecker interface {
	HealthCheck(ctx context.Context) error
}
