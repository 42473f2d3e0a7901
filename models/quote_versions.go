package models

import (
	"sort"
	"time"
)

// Quote history follows one rule for both the quote itself and its nested
// menu/montaje entries: a save either appends a snapshot one past the highest
// existing version, or overwrites the snapshot at the head version. Snapshots
// below the head are never touched.

func (q *Quote) maxVersion() int {
	max := 0
	for _, s := range q.Versions {
		if s.Version > max {
			max = s.Version
		}
	}
	return max
}

func (q *Quote) indexOf(version int) int {
	for i, s := range q.Versions {
		if s.Version == version {
			return i
		}
	}
	return -1
}

// Snapshot returns the stored snapshot for version.
func (q *Quote) Snapshot(version int) (QuoteSnapshot, bool) {
	if i := q.indexOf(version); i >= 0 {
		return q.Versions[i], true
	}
	return QuoteSnapshot{}, false
}

// BumpVersion moves the head one past the highest recorded version. The next
// CommitHead then appends instead of amending.
func (q *Quote) BumpVersion() int {
	q.Version = q.maxVersion() + 1
	return q.Version
}

// CommitHead writes the live fields into the snapshot at the head version,
// appending it when the head has no snapshot yet.
func (q *Quote) CommitHead(at time.Time) {
	if q.Version <= 0 {
		q.BumpVersion()
	}
	snap := QuoteSnapshot{Version: q.Version, SavedAt: at, QuoteFields: q.QuoteFields.clone()}
	if i := q.indexOf(q.Version); i >= 0 {
		q.Versions[i] = snap
		return
	}
	q.Versions = append(q.Versions, snap)
	sortQuoteSnapshots(q.Versions)
}

// SaveFields replaces the live fields and records them in the history. With
// bump set (or on the first save) a new version is appended, otherwise the
// current version is amended.
func (q *Quote) SaveFields(f QuoteFields, bump bool, at time.Time) {
	f.MenuMontajeVersion = q.MenuMontajeVersion
	f.MenuMontaje = cloneEntries(q.MenuMontaje)
	q.QuoteFields = f.clone()
	if bump || len(q.Versions) == 0 {
		q.BumpVersion()
	}
	q.CommitHead(at)
}

// EnsureHead makes the live fields reproducible from the history: a missing
// head version is allocated, a missing head snapshot is synthesized from the
// live fields and a head snapshot that disagrees with them is amended. It
// reports whether anything changed.
func (q *Quote) EnsureHead(at time.Time) bool {
	q.normalize()
	changed := q.ensureMenuMontajeHead(at)
	sortQuoteSnapshots(q.Versions)
	if q.Version <= 0 {
		q.BumpVersion()
		changed = true
	}
	i := q.indexOf(q.Version)
	switch {
	case i < 0:
		q.CommitHead(at)
		return true
	case !sameJSON(q.Versions[i].QuoteFields, q.QuoteFields):
		q.CommitHead(q.Versions[i].SavedAt)
		return true
	}
	return changed
}

func (q *Quote) maxMenuMontajeVersion() int {
	max := 0
	for _, s := range q.MenuMontajeVersions {
		if s.Version > max {
			max = s.Version
		}
	}
	return max
}

func (q *Quote) menuMontajeIndex(version int) int {
	for i, s := range q.MenuMontajeVersions {
		if s.Version == version {
			return i
		}
	}
	return -1
}

// SaveMenuMontaje replaces the live menu/montaje entries under the same
// append-or-amend rule as SaveFields. The quote head is not moved; callers
// that want the quote history to capture the change save the quote after.
func (q *Quote) SaveMenuMontaje(entries []MenuMontajeEntry, bump bool, at time.Time) {
	q.MenuMontaje = cloneEntries(entries)
	if bump || len(q.MenuMontajeVersions) == 0 || q.MenuMontajeVersion <= 0 {
		q.MenuMontajeVersion = q.maxMenuMontajeVersion() + 1
	}
	q.commitMenuMontajeHead(at)
}

func (q *Quote) commitMenuMontajeHead(at time.Time) {
	snap := MenuMontajeSnapshot{Version: q.MenuMontajeVersion, SavedAt: at, Entries: cloneEntries(q.MenuMontaje)}
	if i := q.menuMontajeIndex(q.MenuMontajeVersion); i >= 0 {
		q.MenuMontajeVersions[i] = snap
		return
	}
	q.MenuMontajeVersions = append(q.MenuMontajeVersions, snap)
	sort.SliceStable(q.MenuMontajeVersions, func(a, b int) bool {
		return q.MenuMontajeVersions[a].Version < q.MenuMontajeVersions[b].Version
	})
}

func (q *Quote) ensureMenuMontajeHead(at time.Time) bool {
	if q.MenuMontajeVersion <= 0 {
		if len(q.MenuMontaje) == 0 && len(q.MenuMontajeVersions) == 0 {
			return false
		}
		q.MenuMontajeVersion = q.maxMenuMontajeVersion() + 1
		q.commitMenuMontajeHead(at)
		return true
	}
	i := q.menuMontajeIndex(q.MenuMontajeVersion)
	switch {
	case i < 0:
		q.commitMenuMontajeHead(at)
		return true
	case !sameJSON(q.MenuMontajeVersions[i].Entries, q.MenuMontaje):
		q.commitMenuMontajeHead(q.MenuMontajeVersions[i].SavedAt)
		return true
	}
	return false
}

func sortQuoteSnapshots(s []QuoteSnapshot) {
	sort.SliceStable(s, func(a, b int) bool { return s[a].Version < s[b].Version })
}

func newer(version int, savedAt time.Time, bestVersion int, bestAt time.Time) bool {
	if version != bestVersion {
		return version > bestVersion
	}
	return savedAt.After(bestAt)
}

// LatestQuoteInGroup scans every event of a reservation group and returns the
// quote snapshot with the highest version, the latest savedAt breaking ties.
// Group-level aggregation such as occupancy reporting treats it as
// authoritative.
func LatestQuoteInGroup(events []Event, key string) (QuoteSnapshot, string, bool) {
	var (
		best    QuoteSnapshot
		eventID string
		found   bool
	)
	for _, e := range events {
		if e.Quote == nil || e.ReservationKey() != key {
			continue
		}
		for _, s := range e.Quote.Versions {
			if !found || newer(s.Version, s.SavedAt, best.Version, best.SavedAt) {
				best, eventID, found = s, e.ID, true
			}
		}
	}
	return best, eventID, found
}

// LatestMenuMontajeInGroup is LatestQuoteInGroup for the menu/montaje history.
func LatestMenuMontajeInGroup(events []Event, key string) (MenuMontajeSnapshot, string, bool) {
	var (
		best    MenuMontajeSnapshot
		eventID string
		found   bool
	)
	for _, e := range events {
		if e.Quote == nil || e.ReservationKey() != key {
			continue
		}
		for _, s := range e.Quote.MenuMontajeVersions {
			if !found || newer(s.Version, s.SavedAt, best.Version, best.SavedAt) {
				best, eventID, found = s, e.ID, true
			}
		}
	}
	return best, eventID, found
}
