// Package sequence converts raw per-player unlock records into the
// time-ordered interaction sequences consumed by the sequence model.
package sequence

import "sort"

// Unlock is one achievement's unlock status for a single player.
// A zero UnlockTime means the achievement has not been earned yet.
type Unlock struct {
	APIName    string
	UnlockTime int64 // unix seconds
}

// Sequence is a player's achievement history ordered by unlock time.
type Sequence []string

// Build produces a player's interaction sequence from raw unlock records.
//
// Records with a zero unlock time are excluded: the unlock has not happened
// and carries no order signal. Ordering is deterministic regardless of the
// input order: primary key is unlock time ascending, ties break by
// achievement api-name ascending so repeated runs over the same records
// always produce the same training data.
func Build(unlocks []Unlock) Sequence {
	earned := make([]Unlock, 0, len(unlocks))
	for _, u := range unlocks {
		if u.UnlockTime != 0 {
			earned = append(earned, u)
		}
	}

	sort.Slice(earned, func(i, j int) bool {
		if earned[i].UnlockTime != earned[j].UnlockTime {
			return earned[i].UnlockTime < earned[j].UnlockTime
		}
		return earned[i].APIName < earned[j].APIName
	})

	seq := make(Sequence, len(earned))
	for i, u := range earned {
		seq[i] = u.APIName
	}
	return seq
}

// Last returns the most recent achievement in the sequence, or "" when the
// sequence is empty.
func (s Sequence) Last() string {
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

// Contains reports whether the sequence includes the given achievement.
func (s Sequence) Contains(apiName string) bool {
	for _, a := range s {
		if a == apiName {
			return true
		}
	}
	return false
}
