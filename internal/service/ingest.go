package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/plentyofmemes/memepipe/internal/domain"
	"github.com/plentyofmemes/memepipe/internal/logger"
	"github.com/plentyofmemes/memepipe/internal/source"
	"github.com/plentyofmemes/memepipe/internal/storage"
)

// Corpus is the persisted-corpus surface the pipeline needs.
type Corpus interface {
	Create(ctx context.Context, meme *domain.Meme) error
	ListFingerprints(ctx context.Context) ([]domain.FingerprintEntry, error)
}

// BatchLog records batch run outcomes for operator visibility.
type BatchLog interface {
	Create(ctx context.Context, run *domain.BatchRun) error
	Finish(ctx context.Context, run *domain.BatchRun) error
}

// ErrBatchInProgress is returned when a batch run is triggered while another
// run is still in flight. Invocations are single-flight.
var ErrBatchInProgress = errors.New("a batch run is already in progress")

// IngestService is the decision pipeline: it pulls candidates from a source
// adapter and, per candidate, fetches the image, fingerprints it, gates it on
// safety, resolves duplicates, and stages a pending record for moderation.
type IngestService struct {
	corpus     Corpus
	batches    BatchLog
	fetcher    ImageFetcher
	classifier SafetyClassifier
	fprint     *Fingerprinter
	archive    storage.ObjectStorage // nil disables archiving
	logger     *logger.Logger

	workers          int
	batchSize        int
	nsfwThreshold    float64
	hammingThreshold int

	// Single-flight guard for batch runs.
	runMu sync.Mutex

	// Serializes resolve+insert so two duplicate candidates in the same run
	// cannot both stage as originals.
	stageMu sync.Mutex
}

// IngestConfig holds configuration for the ingest service.
type IngestConfig struct {
	Workers          int
	BatchSize        int
	NSFWThreshold    float64
	HammingThreshold int
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	corpus Corpus,
	batches BatchLog,
	fetcher ImageFetcher,
	classifier SafetyClassifier,
	archive storage.ObjectStorage,
	log *logger.Logger,
	cfg *IngestConfig,
) *IngestService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 25
	}
	nsfw := cfg.NSFWThreshold
	if nsfw <= 0 {
		nsfw = 0.4
	}
	hamming := cfg.HammingThreshold
	if hamming <= 0 {
		hamming = 5
	}
	return &IngestService{
		corpus:           corpus,
		batches:          batches,
		fetcher:          fetcher,
		classifier:       classifier,
		fprint:           NewFingerprinter(),
		archive:          archive,
		logger:           log,
		workers:          workers,
		batchSize:        batchSize,
		nsfwThreshold:    nsfw,
		hammingThreshold: hamming,
	}
}

// log returns a logger from context if available, otherwise the service logger
func (s *IngestService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// BatchStats holds counters for one batch run.
type BatchStats struct {
	TotalItems   int64
	StagedItems  int64
	DroppedItems int64
	FailedItems  int64
	Duplicates   int64 // staged records flagged with duplicate_of
	StartTime    time.Time
	EndTime      time.Time

	mu              sync.Mutex
	DroppedByReason map[DropReason]int64
}

func (st *BatchStats) drop(reason DropReason) {
	atomic.AddInt64(&st.DroppedItems, 1)
	st.mu.Lock()
	st.DroppedByReason[reason]++
	st.mu.Unlock()
}

// DroppedReasons returns a copy of the per-reason drop counters.
func (st *BatchStats) DroppedReasons() map[DropReason]int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make(map[DropReason]int64, len(st.DroppedByReason))
	for reason, n := range st.DroppedByReason {
		out[reason] = n
	}
	return out
}

// Outcome is the per-candidate pipeline result: either the candidate was
// staged as a pending record, or dropped for a reason.
type Outcome struct {
	Staged bool
	Reason DropReason   // set when not staged
	Meme   *domain.Meme // set when staged
}

// RunBatch is the idempotent batch entry point invoked by an external
// scheduler. It pulls up to limit candidates from the source, processes them
// through a bounded worker pool, and reports counters. Per-candidate failures
// never abort the batch; a corpus failure does, leaving already-staged records
// intact.
// Parameters:
//   - ctx: context for cancellation; a cancelled batch processes fewer
//     candidates, never a partially-written record.
//   - src: source adapter producing this run's candidates.
//   - limit: maximum candidates to pull; <=0 uses the configured batch size.
// Returns:
//   - *BatchStats: counters for the run.
//   - error: ErrBatchInProgress, or wraps ErrStorageUnavailable on abort.
func (s *IngestService) RunBatch(ctx context.Context, src source.Source, limit int) (*BatchStats, error) {
	if !s.runMu.TryLock() {
		return nil, ErrBatchInProgress
	}
	defer s.runMu.Unlock()

	if limit <= 0 {
		limit = s.batchSize
	}

	run := &domain.BatchRun{
		ID:        uuid.New().String(),
		Source:    src.GetSourceID(),
		Status:    domain.BatchStatusRunning,
		StartedAt: time.Now(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.batches.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	ctx = logger.SetBatchID(ctx, run.ID)
	ctx = logger.SetSource(ctx, src.GetSourceID())

	stats := &BatchStats{
		StartTime:       time.Now(),
		DroppedByReason: make(map[DropReason]int64),
	}

	s.log(ctx).WithFields(logger.Fields{
		"limit":   limit,
		"workers": s.workers,
	}).Info("Starting batch run")

	// Refresh the dedup snapshot once per run rather than per candidate.
	snapshot, err := s.corpus.ListFingerprints(ctx)
	if err != nil {
		s.finishRun(ctx, run, stats, domain.BatchStatusAborted, err)
		return stats, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	resolver := NewDedupResolver(snapshot, s.hammingThreshold)

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// storageErr records the first corpus failure; it cancels the rest of the
	// batch via batchCtx.
	var storageErr atomic.Value

	candChan := make(chan domain.Candidate, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range candChan {
				select {
				case <-batchCtx.Done():
					continue // drain remaining items without processing
				default:
				}

				outcome, perr := s.Process(batchCtx, cand, resolver)
				if perr != nil {
					atomic.AddInt64(&stats.FailedItems, 1)
					if errors.Is(perr, ErrStorageUnavailable) {
						storageErr.CompareAndSwap(nil, perr)
						cancel()
					} else {
						s.log(ctx).WithFields(logger.Fields{
							"candidate_url": cand.ImageURL,
						}).WithError(perr).Error("Failed to process candidate")
					}
					continue
				}

				if outcome.Staged {
					atomic.AddInt64(&stats.StagedItems, 1)
					if outcome.Meme.DuplicateOf != nil {
						atomic.AddInt64(&stats.Duplicates, 1)
					}
				} else {
					stats.drop(outcome.Reason)
				}
			}
		}()
	}

	// Pull candidates from the source, an arbitrarily small or empty batch is
	// fine.
	cursor := ""
	fetched := 0
feed:
	for fetched < limit {
		if batchCtx.Err() != nil {
			break
		}

		want := limit - fetched
		cands, nextCursor, ferr := src.FetchBatch(ctx, cursor, want)
		if ferr != nil {
			s.log(ctx).WithError(ferr).Error("Failed to fetch candidates from source")
			break
		}
		if len(cands) == 0 {
			break
		}

		fetched += len(cands)
		atomic.AddInt64(&stats.TotalItems, int64(len(cands)))

		for _, cand := range cands {
			select {
			case candChan <- cand:
			case <-batchCtx.Done():
				break feed
			}
		}

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	close(candChan)
	wg.Wait()

	stats.EndTime = time.Now()

	status := domain.BatchStatusCompleted
	var serr error
	if v := storageErr.Load(); v != nil {
		status = domain.BatchStatusAborted
		serr = v.(error)
	}
	s.finishRun(ctx, run, stats, status, serr)

	s.log(ctx).WithFields(logger.Fields{
		"total":    stats.TotalItems,
		"staged":   stats.StagedItems,
		"dropped":  stats.DroppedItems,
		"failed":   stats.FailedItems,
		"duration": stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Batch run finished")

	if serr != nil {
		return stats, serr
	}
	return stats, nil
}

func (s *IngestService) finishRun(ctx context.Context, run *domain.BatchRun, stats *BatchStats, status domain.BatchStatus, cause error) {
	run.Status = status
	run.TotalItems = int(atomic.LoadInt64(&stats.TotalItems))
	run.StagedItems = int(atomic.LoadInt64(&stats.StagedItems))
	run.DroppedItems = int(atomic.LoadInt64(&stats.DroppedItems))
	run.FailedItems = int(atomic.LoadInt64(&stats.FailedItems))
	if cause != nil {
		run.ErrorLog = cause.Error()
	}
	// Best effort: if the corpus is down this fails too, the counters were
	// already logged.
	if err := s.batches.Finish(context.WithoutCancel(ctx), run); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record batch run outcome")
	}
}

// Process runs one candidate through the decision pipeline. Each step may
// short-circuit with a drop outcome; only a corpus failure is returned as an
// error. Staging one record is an atomic unit of work.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cand: candidate to process.
//   - resolver: dedup resolver for this batch run.
// Returns:
//   - Outcome: staged record or drop reason.
//   - error: wraps ErrStorageUnavailable when the corpus write fails.
func (s *IngestService) Process(ctx context.Context, cand domain.Candidate, resolver *DedupResolver) (Outcome, error) {
	// 1. Fetch image bytes, bounded by size and timeout.
	data, err := s.fetcher.Fetch(ctx, cand.ImageURL)
	if err != nil {
		s.log(ctx).WithFields(logger.Fields{
			"candidate_url": cand.ImageURL,
		}).WithError(err).Warn("Dropping candidate: fetch failed")
		return Outcome{Reason: DropFetchFailed}, nil
	}

	// 2. Compute fingerprints.
	fp, err := s.fprint.Fingerprint(data)
	if err != nil {
		s.log(ctx).WithFields(logger.Fields{
			"candidate_url": cand.ImageURL,
		}).WithError(err).Warn("Dropping candidate: undecodable image")
		return Outcome{Reason: DropUndecodable}, nil
	}

	// 3. Classify safety. Fail closed: a candidate whose safety is unknown is
	// never staged.
	nsfwScore, err := s.classifier.Classify(ctx, data)
	if err != nil {
		s.log(ctx).WithFields(logger.Fields{
			"candidate_url": cand.ImageURL,
		}).WithError(err).Warn("Dropping candidate: classification unavailable")
		return Outcome{Reason: DropClassificationUnavailable}, nil
	}

	// 4. NSFW gate runs before the dedup query: an unsafe image must never
	// enter the corpus, not even as dedup reference material.
	if nsfwScore > s.nsfwThreshold {
		s.log(ctx).WithFields(logger.Fields{
			"candidate_url": cand.ImageURL,
			"nsfw_score":    nsfwScore,
		}).Info("Dropping candidate: unsafe")
		return Outcome{Reason: DropUnsafe}, nil
	}

	// 5+6. Resolve the duplicate verdict and persist, serialized so two
	// near-duplicates in flight cannot both stage as originals. The verdict is
	// informational: duplicates still reach the moderation queue so a human
	// makes the final call.
	s.stageMu.Lock()
	defer s.stageMu.Unlock()

	verdict := resolver.Resolve(fp)

	now := time.Now()
	meme := &domain.Meme{
		ID:        uuid.New().String(),
		Title:     cand.Title,
		ImageURL:  cand.ImageURL,
		SourceURL: cand.SourceURL,
		Author:    cand.Author,
		Score:     cand.Score,
		NSFWScore: nsfwScore,
		MD5:       fp.MD5,
		PHash:     fp.PHashString(),
		Status:    domain.MemeStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !verdict.IsOriginal() {
		dup := verdict.DuplicateOf
		meme.DuplicateOf = &dup
	}

	if s.archive != nil {
		meme.ArchiveKey = s.archiveImage(ctx, fp.MD5, data)
	}

	if err := s.corpus.Create(ctx, meme); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	resolver.Add(meme.ID, fp, now)

	s.log(ctx).WithFields(logger.Fields{
		"meme_id":      meme.ID,
		"duplicate_of": verdict.DuplicateOf,
		"nsfw_score":   nsfwScore,
	}).Info("Staged candidate for moderation")

	return Outcome{Staged: true, Meme: meme}, nil
}

// archiveImage uploads the raw bytes keyed by md5. Archiving is best effort:
// the feed falls back to the source image_url when the key is empty.
func (s *IngestService) archiveImage(ctx context.Context, md5 string, data []byte) string {
	key := fmt.Sprintf("%s/%s", md5[:2], md5)

	exists, err := s.archive.Exists(ctx, key)
	if err == nil && exists {
		return key
	}

	contentType := detectContentType(data)
	if err := s.archive.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		s.log(ctx).WithField("archive_key", key).WithError(err).Warn("Failed to archive image")
		return ""
	}
	return key
}

// detectContentType sniffs the image format from magic bytes.
func detectContentType(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8:
		return "image/jpeg"
	case len(data) >= 8 && bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case len(data) >= 6 && (bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a"))):
		return "image/gif"
	case len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
