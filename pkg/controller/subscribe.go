package controller

import (
	"context"
	"time"

	"github.com/cuemby/strata/pkg/authz"
	"github.com/cuemby/strata/pkg/notify"
	"github.com/cuemby/strata/pkg/storage"
	"github.com/cuemby/strata/pkg/token"
	"github.com/cuemby/strata/pkg/types"
)

// Subscribe registers a durable watermark over events touching root
// (optionally its whole subtree), owned by the requester. Replay and live delivery both key off this record.
type Subscribe struct {
	Requester      *token.Requester
	Root           types.ID
	IncludeSubtree bool
	Now            time.Time
}

func (w *Subscribe) Op() string                 { return "Subscribe" }
func (w *Subscribe) EventKind() types.EventKind { return types.EventAnnouncement }

func (w *Subscribe) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if err := c.Authz.Authorize(txn, w.Requester, authz.RequirePermission(types.PermissionRead, w.Root)); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	sub := &types.Subscriber{
		ID:             types.NewID(),
		OwnerID:        w.Requester.PrincipalID(),
		TargetID:       w.Root,
		IncludeSubtree: w.IncludeSubtree,
		CreatedAt:      w.Now,
	}
	if err := txn.PutSubscriber(sub); err != nil {
		return nil, nil, err
	}
	return sub, nil, nil
}

// Ack advances a subscriber's watermark, marking every event up to and
// including eventID as delivered; the next Replay starts after it.
type Ack struct {
	Requester    *token.Requester
	SubscriberID types.ID
	EventID      uint64
}

func (w *Ack) Op() string                 { return "Ack" }
func (w *Ack) EventKind() types.EventKind { return types.EventAnnouncement }

func (w *Ack) Execute(ctx context.Context, txn *storage.Txn, c *Controller) (any, []types.ID, error) {
	if err := c.Authz.Authorize(txn, w.Requester, authz.SubscriberOwnerOf(w.SubscriberID)); err != nil {
		return nil, nil, permissionDenied("%v", err)
	}
	if err := notify.Ack(txn, w.SubscriberID, w.EventID); err != nil {
		return nil, nil, err
	}
	return struct {
		Acked uint64 `json:"acked"`
	}{w.EventID}, nil, nil
}
