package search

import (
	"context"
	"log/slog"

	"docvault/internal/domain/services"
)

// Indexer is whatever backend actually ingests index payloads. It is
// deliberately narrow: the version store never learns whether indexing
// succeeded.
type Indexer interface {
	Index(ctx context.Context, event *services.IndexEvent) error
}

// AsyncNotifier delivers index events to an Indexer on a background
// goroutine. Failures are logged and dropped; a version mutation is
// already durably committed by the time an event is emitted, and the
// indexing collaborator is never allowed to roll it back.
type AsyncNotifier struct {
	indexer Indexer
	logger  *slog.Logger
}

// NewAsyncNotifier creates a best-effort notifier over the given indexer.
func NewAsyncNotifier(indexer Indexer, logger *slog.Logger) *AsyncNotifier {
	return &AsyncNotifier{
		indexer: indexer,
		logger:  logger,
	}
}

// VersionChanged implements services.IndexNotifier
func (n *AsyncNotifier) VersionChanged(ctx context.Context, event *services.IndexEvent) {
	// Detach from the caller's context: request cancellation must not
	// cancel a post-commit side effect mid-flight.
	go func() {
		if err := n.indexer.Index(context.WithoutCancel(ctx), event); err != nil {
			n.logger.Error("index notification failed",
				"document_id", event.DocumentID,
				"version_id", event.VersionID,
				"branch", event.BranchName,
				"error", err,
			)
		}
	}()
}

// LogIndexer is the default Indexer: it records the payload in the
// structured log. Stands in until a real search backend is wired up.
type LogIndexer struct {
	logger *slog.Logger
}

// NewLogIndexer creates an indexer that only logs payloads.
func NewLogIndexer(logger *slog.Logger) *LogIndexer {
	return &LogIndexer{logger: logger}
}

// Index implements Indexer
func (i *LogIndexer) Index(_ context.Context, event *services.IndexEvent) error {
	i.logger.Info("version indexed",
		"document_id", event.DocumentID,
		"version_id", event.VersionID,
		"version_number", event.VersionNumber,
		"branch", event.BranchName,
		"is_current", event.IsCurrent,
		"actor_id", event.ActorID,
	)
	return nil
}
