package app

import "github.com/cesargomez89/mediasync/internal/domain"

// MergeAction is what MergeOne decided for one (user, media) pair.
type MergeAction string

const (
	MergeCreated     MergeAction = "created"
	MergeOverwritten MergeAction = "overwritten"
	MergeUnchanged   MergeAction = "unchanged"
	MergeKept        MergeAction = "kept"
)

// MergeOne applies a remote list entry to the user's existing entry, if
// any. With no existing entry the remote values are used. Otherwise
// preserveLocal keeps the existing entry untouched and !preserveLocal
// overwrites status, score and progress. MergeUnchanged is an overwrite
// that would not change anything and needs no write.
//
// The returned entry carries remote.Media's id and type; the caller sets
// UserID on created entries.
func MergeOne(remote *domain.RemoteEntry, existing *domain.ActivityEntry, preserveLocal bool) (domain.ActivityEntry, MergeAction) {
	if existing == nil {
		return domain.ActivityEntry{
			MediaID:   remote.Media.ID,
			MediaType: remote.Media.MediaType,
			Status:    remote.Status,
			Score:     copyScore(remote.Score),
			Progress:  remote.Progress,
		}, MergeCreated
	}

	if preserveLocal {
		return *existing, MergeKept
	}

	merged := *existing
	merged.Status = remote.Status
	merged.Score = copyScore(remote.Score)
	merged.Progress = remote.Progress
	if merged.SameActivity(existing) {
		return *existing, MergeUnchanged
	}
	return merged, MergeOverwritten
}

func copyScore(s *float64) *float64 {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
