package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/cesargomez89/mediasync/internal/catalog"
	"github.com/cesargomez89/mediasync/internal/constants"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/fanout"
	"github.com/cesargomez89/mediasync/internal/logger"
	"github.com/cesargomez89/mediasync/internal/metrics"
)

// ErrSyncFailed is returned when no list of the provider could be read.
var ErrSyncFailed = errors.New("sync failed")

// SyncResult summarizes one sync run.
type SyncResult struct {
	RunID       string           `json:"run_id"`
	Provider    domain.Provider  `json:"provider"`
	Message     string           `json:"message"`
	Failures    []fanout.Failure `json:"failures,omitempty"`
	Processed   int              `json:"items_processed"`
	Skipped     int              `json:"items_skipped"`
	Created     int              `json:"created"`
	Overwritten int              `json:"overwritten"`
	Unchanged   int              `json:"unchanged"`
	Kept        int              `json:"kept"`
}

type SyncService struct {
	Repo     Store
	Prefs    PreferenceSource
	Tokens   TokenSource
	Catalogs Catalogs
	Recorder SyncRecorder
	Logger   *logger.Logger
	Limit    int
	Timeout  time.Duration

	locks sync.Map // user id -> *sync.Mutex
}

func NewSyncService(repo Store, prefs PreferenceSource, tokens TokenSource, catalogs Catalogs, log *logger.Logger) *SyncService {
	return &SyncService{
		Repo:     repo,
		Prefs:    prefs,
		Tokens:   tokens,
		Catalogs: catalogs,
		Logger:   log,
		Limit:    constants.DefaultFanoutLimit,
		Timeout:  constants.DefaultSyncTimeout,
	}
}

func (s *SyncService) userLock(userID string) *sync.Mutex {
	m, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// SyncProvider reads every list the user keeps on provider and merges it
// into the local state. Runs for the same user are serialized.
//
// A missing or rejected credential, or every list failing, is returned as
// an error. Lists that fail while others succeed are reported in
// SyncResult.Failures and the rest is still merged.
func (s *SyncService) SyncProvider(ctx context.Context, userID string, provider domain.Provider) (*SyncResult, error) {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	result := &SyncResult{RunID: uuid.New().String(), Provider: provider}
	log := s.Logger.WithComponent("sync").WithSync(result.RunID, userID).WithProvider(string(provider))

	err := s.run(ctx, log, userID, provider, result)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "failed"
	case len(result.Failures) > 0:
		outcome = "partial"
	}
	metrics.SyncRuns.WithLabelValues(string(provider), outcome).Inc()
	metrics.SyncDuration.WithLabelValues(string(provider)).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error("Sync failed", "error", err)
		return nil, err
	}

	if s.Recorder != nil {
		if rErr := s.Recorder.RecordSync(userID, provider, time.Now()); rErr != nil {
			log.Warn("Failed to record sync time", "error", rErr)
		}
	}
	log.Info("Sync finished",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"created", result.Created,
		"overwritten", result.Overwritten,
		"kept", result.Kept,
		"failed_lists", len(result.Failures),
		"duration", time.Since(start))
	return result, nil
}

func (s *SyncService) run(ctx context.Context, log *logger.Logger, userID string, provider domain.Provider, result *SyncResult) error {
	syncer, err := s.Catalogs.Syncer(provider)
	if err != nil {
		return err
	}
	normalizer, err := catalog.NormalizerFor(provider)
	if err != nil {
		return err
	}
	pref, err := s.Prefs.GetPreference(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load preference: %w", err)
	}
	tok, err := s.Tokens.Token(ctx, userID, provider)
	if err != nil {
		return fmt.Errorf("%s: %w", provider, err)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	lists, err := syncer.UserLists(ctx, tok)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	tasks := make([]fanout.Task[string, []json.RawMessage], 0, len(lists))
	for _, l := range lists {
		tasks = append(tasks, fanout.Task[string, []json.RawMessage]{Key: l.Name, Run: l.Fetch})
	}
	outcomes := fanout.Run(ctx, s.Limit, tasks)
	recordFanout("sync", outcomes)

	if partial := fanout.Partial(outcomes); partial != nil {
		for _, f := range partial.Failures {
			log.Warn("List fetch failed", "list", f.Key, "error", f.Err)
		}
		if partial.AllFailed() {
			return fmt.Errorf("%w: %w", ErrSyncFailed, partial)
		}
		result.Failures = partial.Failures
	}

	entries, skipped := s.normalize(log, normalizer, lists, outcomes)
	result.Skipped = skipped

	for _, pe := range entries {
		action, err := s.apply(ctx, userID, pe, pref.PreserveLocalOnSync)
		if err != nil {
			return err
		}
		result.Processed++
		switch action {
		case MergeCreated:
			result.Created++
		case MergeOverwritten:
			result.Overwritten++
		case MergeUnchanged:
			result.Unchanged++
		case MergeKept:
			result.Kept++
		}
		metrics.SyncItems.WithLabelValues(string(provider), string(action)).Inc()
	}
	if skipped > 0 {
		metrics.SyncItems.WithLabelValues(string(provider), "skipped").Add(float64(skipped))
	}

	result.Message = syncMessage(result)
	return nil
}

// pendingEntry is a normalized remote entry waiting to be merged. It is
// tentative when a later list of the same media type, which would have
// overridden it, failed to fetch.
type pendingEntry struct {
	remote    *domain.RemoteEntry
	tentative bool
}

// normalize flattens the fetched lists in declared order. A later list
// replaces an earlier entry for the same media while keeping its position.
func (s *SyncService) normalize(log *logger.Logger, n catalog.Normalizer, lists []catalog.UserList, outcomes []fanout.Outcome[string, []json.RawMessage]) ([]pendingEntry, int) {
	// failedAfter[i] reports whether a list after i with the same media type failed.
	failedAfter := make([]bool, len(outcomes))
	failed := make(map[domain.MediaType]bool)
	for i := len(outcomes) - 1; i >= 0; i-- {
		failedAfter[i] = failed[lists[i].MediaType]
		if !outcomes[i].OK() {
			failed[lists[i].MediaType] = true
		}
	}

	var (
		order   []domain.MediaKey
		byKey   = make(map[domain.MediaKey]pendingEntry)
		skipped int
	)
	for i, o := range outcomes {
		if !o.OK() {
			continue
		}
		list := lists[i]
		for _, raw := range o.Value {
			entry, err := n.NormalizeEntry(catalog.ListItem{Raw: raw, MediaType: list.MediaType, Kind: list.Kind})
			if err != nil {
				skipped++
				log.Debug("Skipping list item", "list", list.Name, "error", err)
				continue
			}
			key := entry.Media.Key()
			if _, seen := byKey[key]; !seen {
				order = append(order, key)
			}
			byKey[key] = pendingEntry{remote: entry, tentative: failedAfter[i]}
		}
	}

	out := make([]pendingEntry, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out, skipped
}

// apply refreshes the media row and merges the activity entry. A tentative
// entry only creates missing activity and never overwrites an existing one.
func (s *SyncService) apply(ctx context.Context, userID string, pe pendingEntry, preserveLocal bool) (MergeAction, error) {
	remote := pe.remote
	if err := s.Repo.UpsertMedia(ctx, &remote.Media); err != nil {
		return "", err
	}

	existing, err := s.Repo.GetActivityEntry(ctx, userID, remote.Media.ID)
	if errors.Is(err, domain.ErrNotFound) {
		existing, err = nil, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load activity entry: %w", err)
	}
	if pe.tentative && existing != nil {
		return MergeKept, nil
	}

	merged, action := MergeOne(remote, existing, preserveLocal)
	if action == MergeKept || action == MergeUnchanged {
		return action, nil
	}
	merged.UserID = userID
	if err := s.Repo.UpsertActivityEntry(ctx, &merged); err != nil {
		return "", err
	}
	return action, nil
}

func syncMessage(r *SyncResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Synced %d items from %s", r.Processed, r.Provider)
	if r.Skipped > 0 {
		fmt.Fprintf(&b, " (%d skipped)", r.Skipped)
	}
	if len(r.Failures) > 0 {
		keys := make([]string, 0, len(r.Failures))
		for _, f := range r.Failures {
			keys = append(keys, f.Key)
		}
		fmt.Fprintf(&b, "; could not read %s", strings.Join(keys, ", "))
	}
	return b.String()
}
