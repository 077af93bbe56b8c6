package holon

import "encoding/json"

// wireHolon mirrors Holon for JSON transport (session snapshots,
// pool.Snapshot). Errors are flattened to strings: accumulated commit
// errors are diagnostic text by the time a holon is serialized, not
// live error values a receiver needs to type-switch on.
type wireHolon struct {
	Phase           Phase                                      `json:"phase"`
	State           HolonState                                 `json:"state"`
	Validation      ValidationState                            `json:"validation"`
	Staged          StagedPhase                                `json:"staged"`
	Version         int                                        `json:"version"`
	PropertyMap     PropertyMap                                `json:"property_map"`
	RelationshipMap map[RelationshipName]*HolonCollectionWire `json:"relationship_map"`
	OriginalID      *HolonId                                   `json:"original_id,omitempty"`
	SavedID         *HolonId                                   `json:"saved_id,omitempty"`
	Errors          []string                                   `json:"errors,omitempty"`
}

func (h *Holon) MarshalJSON() ([]byte, error) {
	w := wireHolon{
		Phase:           h.Phase,
		State:           h.State,
		Validation:      h.Validation,
		Staged:          h.Staged,
		Version:         h.Version,
		PropertyMap:     h.PropertyMap,
		RelationshipMap: make(map[RelationshipName]*HolonCollectionWire, len(h.RelationshipMap)),
		OriginalID:      h.OriginalID,
		SavedID:         h.SavedID,
	}
	for name, c := range h.RelationshipMap {
		w.RelationshipMap[name] = c.toWire()
	}
	for _, e := range h.Errors {
		w.Errors = append(w.Errors, e.Error())
	}
	return json.Marshal(w)
}

func (h *Holon) UnmarshalJSON(data []byte) error {
	var w wireHolon
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	h.Phase = w.Phase
	h.State = w.State
	h.Validation = w.Validation
	h.Staged = w.Staged
	h.Version = w.Version
	h.PropertyMap = w.PropertyMap
	h.OriginalID = w.OriginalID
	h.SavedID = w.SavedID
	h.RelationshipMap = make(map[RelationshipName]*HolonCollection, len(w.RelationshipMap))
	for name, wc := range w.RelationshipMap {
		h.RelationshipMap[name] = wc.fromWire()
	}
	for _, s := range w.Errors {
		h.Errors = append(h.Errors, errString(s))
	}
	return nil
}

// errString lets a transported diagnostic string satisfy the error
// interface without resurrecting a typed *holonerr.Error.
type errString string

func (e errString) Error() string { return string(e) }

// HolonCollectionWire is the wire form of a HolonCollection. Member
// references are not transported: a HolonReference's identity only
// makes sense bound to a specific TransactionContext (I1), and that
// context does not exist yet on the receiving end of a session
// import. Only state and count cross the wire; membership is not
// rebuilt on import, so an imported collection keeps its state but has
// no members.
type HolonCollectionWire struct {
	State CollectionState `json:"state"`
	Count int             `json:"count"`
}

func (c *HolonCollection) toWire() *HolonCollectionWire {
	return &HolonCollectionWire{State: c.state, Count: len(c.members)}
}

func (w *HolonCollectionWire) fromWire() *HolonCollection {
	return &HolonCollection{
		state:       w.State,
		keyedIndex:  make(map[string]int),
		allowsDupes: true,
		isOrdered:   true,
	}
}
