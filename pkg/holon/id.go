package holon

import "fmt"

// HolonId identifies a persisted (Saved) holon. An empty SpaceID means
// the id is local to this space; a non-empty one is an external
// reference the Cache routes per ServiceRoutingPolicy.
type HolonId struct {
	SpaceID string
	LocalID string
}

func Local(localID string) HolonId { return HolonId{LocalID: localID} }

func External(spaceID, localID string) HolonId {
	return HolonId{SpaceID: spaceID, LocalID: localID}
}

func (id HolonId) IsLocal() bool { return id.SpaceID == "" }

func (id HolonId) String() string {
	if id.IsLocal() {
		return id.LocalID
	}
	return fmt.Sprintf("%s/%s", id.SpaceID, id.LocalID)
}

func (id HolonId) IsZero() bool { return id.LocalID == "" && id.SpaceID == "" }

// RelationshipName identifies an entry in a Holon's relationship map.
type RelationshipName string
