package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/repos"
	"github.com/voxnote/voxnote-backend/internal/services"
)

// IndexJob asks the background workers to embed one record's search text
// and attach the vector.
type IndexJob struct {
	Kind       string // services.SourceKindReel or services.SourceKindDoc
	RecordID   int64
	SearchText string
}

// Indexer is the bounded queue behind eventual indexing. Record creation
// never waits on an embedding round-trip; a saturated queue is reported to
// the enqueuer instead of blocking, and a failed job is logged and dropped
// after bounded retries. The record itself is never lost, only its
// searchability lags.
type Indexer struct {
	log   *logger.Logger
	queue chan IndexJob

	transcripts repos.TranscriptRepo
	documents   repos.DocumentRepo
	embedder    services.EmbeddingProvider

	workers     int
	maxAttempts int
	retryDelay  time.Duration
	jobTimeout  time.Duration

	wg sync.WaitGroup
}

func NewIndexer(
	baseLog *logger.Logger,
	transcriptRepo repos.TranscriptRepo,
	documentRepo repos.DocumentRepo,
	embedder services.EmbeddingProvider,
	queueSize int,
	workers int,
) *Indexer {
	if queueSize <= 0 {
		queueSize = 64
	}
	if workers <= 0 {
		workers = 2
	}
	return &Indexer{
		log:         baseLog.With("component", "Indexer"),
		queue:       make(chan IndexJob, queueSize),
		transcripts: transcriptRepo,
		documents:   documentRepo,
		embedder:    embedder,
		workers:     workers,
		maxAttempts: 3,
		retryDelay:  5 * time.Second,
		jobTimeout:  2 * time.Minute,
	}
}

// Enqueue is non-blocking; false means the queue is full and the record
// stays unindexed.
func (ix *Indexer) Enqueue(kind string, recordID int64, searchText string) bool {
	select {
	case ix.queue <- IndexJob{Kind: kind, RecordID: recordID, SearchText: searchText}:
		return true
	default:
		return false
	}
}

func (ix *Indexer) Start(ctx context.Context) {
	for i := 0; i < ix.workers; i++ {
		ix.wg.Add(1)
		go func() {
			defer ix.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-ix.queue:
					ix.process(ctx, job)
				}
			}
		}()
	}
}

// Wait blocks until all workers have exited after the Start context is
// cancelled.
func (ix *Indexer) Wait() {
	ix.wg.Wait()
}

func (ix *Indexer) process(ctx context.Context, job IndexJob) {
	log := ix.log.With("kind", job.Kind, "record_id", job.RecordID)

	var lastErr error
	for attempt := 1; attempt <= ix.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}
		lastErr = ix.index(ctx, job)
		if lastErr == nil {
			log.Info("Record indexed")
			return
		}
		if attempt < ix.maxAttempts {
			log.Warn("Indexing attempt failed, retrying", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return
			case <-time.After(ix.retryDelay):
			}
		}
	}
	// Swallowed on purpose: the original caller has long since been
	// answered, and the record stays listed but unsearchable.
	log.Error("Background indexing failed, record left unindexed", "error", lastErr)
}

func (ix *Indexer) index(ctx context.Context, job IndexJob) error {
	ctx, cancel := context.WithTimeout(ctx, ix.jobTimeout)
	defer cancel()

	vec, err := ix.embedder.Embed(ctx, job.SearchText)
	if err != nil {
		return err
	}
	encoded, err := services.EncodeEmbedding(vec)
	if err != nil {
		return err
	}

	switch job.Kind {
	case services.SourceKindReel:
		return ix.transcripts.SetEmbedding(ctx, nil, job.RecordID, encoded)
	case services.SourceKindDoc:
		return ix.documents.SetEmbedding(ctx, nil, job.RecordID, encoded)
	default:
		return fmt.Errorf("unknown record kind %q", job.Kind)
	}
}
