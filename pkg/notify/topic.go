package notify

import (
	"strings"

	"github.com/cuemby/strata/pkg/graph"
	"github.com/cuemby/strata/pkg/types"
)

// Subject builds the dot-separated topic a resource event is published
// under: RESOURCE.<project>.<collection?>.<dataset?>.<object?>, one segment
// per ResourceVariant level present in the node's ancestor chain. A
// subscriber matches a subject by prefix, so subscribing to
// "RESOURCE.<project>" receives every event under that project.
func Subject(g *graph.Graph, resolve func(types.ID) (*types.Resource, error), resourceID types.ID) (string, error) {
	ancestors := g.Ancestors(resourceID)
	chain := make([]*types.Resource, 0, len(ancestors))
	for _, id := range ancestors {
		r, err := resolve(id)
		if err != nil {
			return "", err
		}
		chain = append(chain, r)
	}

	order := map[types.ResourceVariant]int{
		types.VariantProject:    0,
		types.VariantCollection: 1,
		types.VariantDataset:    2,
		types.VariantObject:     3,
	}
	segments := make([]string, 4)
	for _, r := range chain {
		pos, ok := order[r.Variant]
		if !ok {
			continue
		}
		segments[pos] = r.ID.String()
	}

	parts := []string{"RESOURCE"}
	for _, seg := range segments {
		if seg == "" {
			break
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "."), nil
}

// UserSubject builds the topic user lifecycle events publish under: there is
// no hierarchy to encode, so every user event shares one fixed subject.
func UserSubject() string { return "USER" }

// AnnouncementSubject is the fixed subject for operator announcements.
func AnnouncementSubject() string { return "ANNOUNCEMENT" }

// Matches reports whether a published subject falls under a subscription's
// filter subject, by dot-segment prefix (a filter of "RESOURCE.p1" matches
// "RESOURCE.p1.c1" but not "RESOURCE.p12").
func Matches(filter, subject string) bool {
	if filter == "" || filter == subject {
		return true
	}
	return strings.HasPrefix(subject, filter+".")
}
