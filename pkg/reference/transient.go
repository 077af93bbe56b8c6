package reference

import (
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/pool"
)

// TransientReference is a transaction-scoped handle to a holon held
// in the TransactionContext's TransientHolonManager.
type TransientReference struct {
	txID string
	id   pool.TemporaryId
	r    Resolver
}

func NewTransient(r Resolver, id pool.TemporaryId) TransientReference {
	return TransientReference{txID: r.TxID(), id: id, r: r}
}

func (ref TransientReference) resolve() (*holon.Holon, error) {
	if err := checkBinding(ref.txID, ref.r); err != nil {
		return nil, err
	}
	return ref.r.ResolveTransient(ref.id)
}

func (ref TransientReference) ID() pool.TemporaryId { return ref.id }

func (ref TransientReference) Key() (string, error) {
	h, err := ref.resolve()
	if err != nil {
		return "", err
	}
	return h.Key()
}

func (ref TransientReference) VersionedKey() (string, error) {
	h, err := ref.resolve()
	if err != nil {
		return "", err
	}
	return h.VersionedKey()
}

func (ref TransientReference) PropertyValue(name holon.PropertyName) (holon.PropertyValue, bool, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, false, err
	}
	v, ok := h.PropertyValue(name)
	return v, ok, nil
}

func (ref TransientReference) RelatedHolons(name holon.RelationshipName) (*holon.HolonCollection, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.RelatedHolons(name), nil
}

func (ref TransientReference) AllRelatedHolons() (map[holon.RelationshipName]*holon.HolonCollection, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.AllRelatedHolons(), nil
}

func (ref TransientReference) EssentialContent() (holon.EssentialHolonContent, error) {
	h, err := ref.resolve()
	if err != nil {
		return holon.EssentialHolonContent{}, err
	}
	return h.EssentialContent()
}

func (ref TransientReference) HolonID() (holon.HolonId, error) {
	h, err := ref.resolve()
	if err != nil {
		return holon.HolonId{}, err
	}
	if h.SavedID != nil {
		return *h.SavedID, nil
	}
	return holon.HolonId{}, holonErrNotYetSaved()
}

func (ref TransientReference) Predecessor() (*holon.HolonId, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.OriginalID, nil
}

func (ref TransientReference) CloneHolon() (*holon.Holon, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.CloneTransient(), nil
}

func (ref TransientReference) WithPropertyValue(name holon.PropertyName, value holon.PropertyValue) error {
	h, err := ref.resolve()
	if err != nil {
		return err
	}
	return h.WithPropertyValue(name, value)
}

func (ref TransientReference) RemovePropertyValue(name holon.PropertyName) error {
	h, err := ref.resolve()
	if err != nil {
		return err
	}
	return h.RemovePropertyValue(name)
}

func (ref TransientReference) AddRelatedHolons(name holon.RelationshipName, refs []holon.HolonReference) error {
	h, err := ref.resolve()
	if err != nil {
		return err
	}
	return h.AddRelatedHolons(name, refs)
}

func (ref TransientReference) RemoveRelatedHolons(name holon.RelationshipName, refs []holon.HolonReference) error {
	h, err := ref.resolve()
	if err != nil {
		return err
	}
	return h.RemoveRelatedHolons(name, refs)
}

func (ref TransientReference) UpdateOriginalID(id *holon.HolonId) error {
	h, err := ref.resolve()
	if err != nil {
		return err
	}
	h.OriginalID = id
	return nil
}

// CollectionKey/Equal satisfy holon.HolonReference so a
// TransientReference can be a HolonCollection member.
func (ref TransientReference) CollectionKey() (string, error) { return ref.Key() }

func (ref TransientReference) Equal(other holon.HolonReference) bool {
	o, ok := other.(TransientReference)
	return ok && o.txID == ref.txID && o.id == ref.id
}

var _ Readable = TransientReference{}
var _ Writable = TransientReference{}
var _ holon.HolonReference = TransientReference{}
