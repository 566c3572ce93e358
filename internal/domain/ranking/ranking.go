// Package ranking turns event-linked sessions into tie-aware leaderboards and
// cross-event performer totals. Everything here is a pure function of its
// input rows; callers supply a consistent snapshot.
package ranking

import (
	"cmp"
	"slices"
	"time"

	"github.com/okian/pacer/internal/domain/model"
)

// Rank orders rows by distance descending, then jogger e-mail, then session id,
// and assigns standard competition ranks (1, 1, 3, ...). The result is never nil.
func Rank(rows []model.LeaderboardRow) []model.LeaderboardEntry {
	sorted := slices.Clone(rows)
	slices.SortFunc(sorted, func(a, b model.LeaderboardRow) int {
		if c := cmp.Compare(toFixedPoint(b.DistanceKm), toFixedPoint(a.DistanceKm)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.JoggerEmail, b.JoggerEmail); c != 0 {
			return c
		}
		return cmp.Compare(a.SessionID, b.SessionID)
	})

	out := make([]model.LeaderboardEntry, len(sorted))
	for i, r := range sorted {
		rank := i + 1
		if i > 0 && toFixedPoint(r.DistanceKm) == toFixedPoint(sorted[i-1].DistanceKm) {
			rank = out[i-1].Rank
		}
		out[i] = model.LeaderboardEntry{
			EventID:     r.EventID,
			SessionID:   r.SessionID,
			JoggerEmail: r.JoggerEmail,
			JoggerName:  r.JoggerName,
			DistanceKm:  r.DistanceKm,
			FinishTime:  int64(r.End.Sub(r.Start) / time.Second),
			Rank:        rank,
		}
	}
	return out
}

// Standing returns the best-ranked entry of email, if any.
func Standing(entries []model.LeaderboardEntry, email string) (model.LeaderboardEntry, bool) {
	i := slices.IndexFunc(entries, func(e model.LeaderboardEntry) bool { return e.JoggerEmail == email })
	if i < 0 {
		return model.LeaderboardEntry{}, false
	}
	return entries[i], true
}

// TopPerformers groups rows by jogger, sums distance and counts distinct
// events. Results are ordered by total distance descending with ties broken
// by jogger e-mail, and truncated to limit.
func TopPerformers(rows []model.PerformerRow, limit int) ([]model.TopPerformer, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	type acc struct {
		performer model.TopPerformer
		events    map[int64]struct{}
	}
	byJogger := make(map[string]*acc)
	for _, r := range rows {
		a, ok := byJogger[r.JoggerEmail]
		if !ok {
			a = &acc{
				performer: model.TopPerformer{JoggerEmail: r.JoggerEmail, JoggerName: r.JoggerName},
				events:    make(map[int64]struct{}),
			}
			byJogger[r.JoggerEmail] = a
		}
		a.performer.TotalDistanceKm += r.DistanceKm
		a.events[r.EventID] = struct{}{}
	}

	out := make([]model.TopPerformer, 0, len(byJogger))
	for _, a := range byJogger {
		a.performer.EventCount = len(a.events)
		out = append(out, a.performer)
	}
	slices.SortFunc(out, func(a, b model.TopPerformer) int {
		if c := cmp.Compare(toFixedPoint(b.TotalDistanceKm), toFixedPoint(a.TotalDistanceKm)); c != 0 {
			return c
		}
		return cmp.Compare(a.JoggerEmail, b.JoggerEmail)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
