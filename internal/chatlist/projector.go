// Package chatlist projects raw participant pairs into the viewer's ordered
// conversation list.
package chatlist

import (
	"sort"

	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
)

// Project derives the viewer-relative thread list from raw chat-list
// entries: for each pair, the participant that is not the viewer, ordered by
// last activity descending. Ties order by the other principal's text form so
// the projection is deterministic. The projection is pure; calling it twice
// on the same input yields the same output.
//
// An entry whose participants both differ from the viewer is malformed
// server data: it is skipped, and a DataError naming the offending entries
// is returned alongside the projection of the well-formed rest.
func Project(entries []models.ChatListEntry, viewer principal.Principal) ([]models.Thread, error) {
	threads := make([]models.Thread, 0, len(entries))
	var bad []models.ChatListEntry

	for _, entry := range entries {
		other, ok := otherParticipant(entry, viewer)
		if !ok {
			bad = append(bad, entry)
			continue
		}
		threads = append(threads, models.Thread{
			Other:        other,
			LastActivity: entry.LastActivity,
		})
	}

	sort.SliceStable(threads, func(i, j int) bool {
		if threads[i].LastActivity != threads[j].LastActivity {
			return threads[i].LastActivity > threads[j].LastActivity
		}
		return threads[i].Other < threads[j].Other
	})

	if len(bad) > 0 {
		return threads, models.NewDataError("%d chat-list entries exclude the viewer", len(bad))
	}
	return threads, nil
}

func otherParticipant(entry models.ChatListEntry, viewer principal.Principal) (principal.Principal, bool) {
	switch {
	case entry.Participants[0].Equal(viewer):
		return entry.Participants[1], true
	case entry.Participants[1].Equal(viewer):
		return entry.Participants[0], true
	default:
		return "", false
	}
}
