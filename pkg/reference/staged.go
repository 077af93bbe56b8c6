package reference

import (
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/pool"
)

// StagedReference is a transaction-scoped handle to a holon held in
// the TransactionContext's Nursery. Per spec §4.1: if its referent has
// transitioned to Committed(saved_id), reads are still served from the
// Nursery entry, while HolonID returns the saved id.
type StagedReference struct {
	txID string
	id   pool.TemporaryId
	r    Resolver
}

func NewStaged(r Resolver, id pool.TemporaryId) StagedReference {
	return StagedReference{txID: r.TxID(), id: id, r: r}
}

func (ref StagedReference) ID() pool.TemporaryId { return ref.id }

func (ref StagedReference) resolve() (*holon.Holon, error) {
	if err := checkBinding(ref.txID, ref.r); err != nil {
		return nil, err
	}
	return ref.r.ResolveStaged(ref.id)
}

func (ref StagedReference) Key() (string, error) {
	h, err := ref.resolve()
	if err != nil {
		return "", err
	}
	return h.Key()
}

func (ref StagedReference) VersionedKey() (string, error) {
	h, err := ref.resolve()
	if err != nil {
		return "", err
	}
	return h.VersionedKey()
}

func (ref StagedReference) PropertyValue(name holon.PropertyName) (holon.PropertyValue, bool, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, false, err
	}
	v, ok := h.PropertyValue(name)
	return v, ok, nil
}

func (ref StagedReference) RelatedHolons(name holon.RelationshipName) (*holon.HolonCollection, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.RelatedHolons(name), nil
}

func (ref StagedReference) AllRelatedHolons() (map[holon.RelationshipName]*holon.HolonCollection, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.AllRelatedHolons(), nil
}

func (ref StagedReference) EssentialContent() (holon.EssentialHolonContent, error) {
	h, err := ref.resolve()
	if err != nil {
		return holon.EssentialHolonContent{}, err
	}
	return h.EssentialContent()
}

// HolonID returns the saved id once the underlying staged holon has
// reached StagedKind Committed; otherwise it's an error, since a
// pending staged holon has no HolonId yet (I5).
func (ref StagedReference) HolonID() (holon.HolonId, error) {
	h, err := ref.resolve()
	if err != nil {
		return holon.HolonId{}, err
	}
	if h.Staged.Kind != holon.Committed {
		return holon.HolonId{}, holonErrNotYetSaved()
	}
	return h.Staged.CommittedID, nil
}

func (ref StagedReference) Predecessor() (*holon.HolonId, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.OriginalID, nil
}

func (ref StagedReference) CloneHolon() (*holon.Holon, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.CloneTransient(), nil
}

func (ref StagedReference) WithPropertyValue(name holon.PropertyName, value holon.PropertyValue) error {
	h, err := ref.resolve()
	if err != nil {
		return err
	}
	return h.WithPropertyValue(name, value)
}

func (ref StagedReference) RemovePropertyValue(name holon.PropertyName) error {
	h, err := ref.resolve()
	if err != nil {
		return err
	}
	return h.RemovePropertyValue(name)
}

func (ref StagedReference) AddRelatedHolons(name holon.RelationshipName, refs []holon.HolonReference) error {
	h, err := ref.resolve()
	if err != nil {
		return err
	}
	return h.AddRelatedHolons(name, refs)
}

func (ref StagedReference) RemoveRelatedHolons(name holon.RelationshipName, refs []holon.HolonReference) error {
	h, err := ref.resolve()
	if err != nil {
		return err
	}
	return h.RemoveRelatedHolons(name, refs)
}

func (ref StagedReference) UpdateOriginalID(id *holon.HolonId) error {
	h, err := ref.resolve()
	if err != nil {
		return err
	}
	h.OriginalID = id
	return nil
}

// AbandonStagedChanges freezes the underlying staged holon (I2).
func (ref StagedReference) AbandonStagedChanges() error {
	h, err := ref.resolve()
	if err != nil {
		return err
	}
	return h.AbandonStagedChanges()
}

func (ref StagedReference) CollectionKey() (string, error) { return ref.Key() }

func (ref StagedReference) Equal(other holon.HolonReference) bool {
	o, ok := other.(StagedReference)
	return ok && o.txID == ref.txID && o.id == ref.id
}

var _ Readable = StagedReference{}
var _ Writable = StagedReference{}
var _ holon.HolonReference = StagedReference{}
