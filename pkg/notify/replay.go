package notify

import (
	"github.com/cuemby/strata/pkg/graph"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/types"
)

// Replay streams every event the subscriber has not yet acked, in id order,
// computing each one's subject the same way a live Publish would. A
// reconnecting subscriber calls this before resuming its live feed so no
// event is lost to a disconnect window.
func Replay(txn *storage.Txn, g *graph.Graph, subscriberID types.ID, fn func(*Notification) error) error {
	sub, err := txn.GetSubscriber(subscriberID)
	if err != nil {
		return err
	}
	resolve := resolveResource(txn)

	return txn.EventsSince(sub.LastAckedEventID, func(ev *types.Event) (bool, error) {
		for _, id := range ev.Touched {
			subject, err := Subject(g, resolve, id)
			if err != nil {
				continue
			}
			if sub.TargetID != "" && !subscriberMatches(sub, subject) {
				continue
			}
			if err := fn(&Notification{Event: ev, Subject: subject}); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

// subscriberMatches reports whether subject falls within sub's durable
// scope: an exact match on its TargetID's topic, or any descendant topic
// when IncludeSubtree is set (topics are built from the ancestor chain, so
// an ancestor's id always prefixes its descendants' subjects).
func subscriberMatches(sub *types.Subscriber, subject string) bool {
	root := "RESOURCE." + sub.TargetID.String()
	if sub.IncludeSubtree {
		return Matches(root, subject)
	}
	return subject == root
}

// Ack advances a subscriber's durable watermark to eventID, never
// regressing it (delegates to storage.Txn.AdvanceWatermark).
func Ack(txn *storage.Txn, subscriberID types.ID, eventID uint64) error {
	return txn.AdvanceWatermark(subscriberID, eventID)
}
