package reference

import (
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
)

// SmartReference is a handle to a persisted (Saved) holon, resolved
// through the Cache. It may carry smart properties lifted from the
// link that produced it, letting property reads bypass a cache hit
// entirely (§4.5's "fast path for link-inlined keys").
type SmartReference struct {
	txID       string
	holonID    holon.HolonId
	smartProps holon.PropertyMap
	r          Resolver
}

func NewSmart(r Resolver, id holon.HolonId, smartProps holon.PropertyMap) SmartReference {
	return SmartReference{txID: r.TxID(), holonID: id, smartProps: smartProps, r: r}
}

func (ref SmartReference) resolve() (*holon.Holon, error) {
	if err := checkBinding(ref.txID, ref.r); err != nil {
		return nil, err
	}
	return ref.r.ResolveSmart(ref.holonID)
}

func (ref SmartReference) Key() (string, error) {
	if v, ok := ref.smartProps.Get("key"); ok {
		return v.String(), nil
	}
	h, err := ref.resolve()
	if err != nil {
		return "", err
	}
	return h.Key()
}

func (ref SmartReference) VersionedKey() (string, error) {
	h, err := ref.resolve()
	if err != nil {
		return "", err
	}
	return h.VersionedKey()
}

// PropertyValue is satisfied from smartProps when present, without
// needing to resolve through the cache at all.
func (ref SmartReference) PropertyValue(name holon.PropertyName) (holon.PropertyValue, bool, error) {
	if v, ok := ref.smartProps.Get(name); ok {
		return v, true, nil
	}
	h, err := ref.resolve()
	if err != nil {
		return nil, false, err
	}
	v, ok := h.PropertyValue(name)
	return v, ok, nil
}

func (ref SmartReference) RelatedHolons(name holon.RelationshipName) (*holon.HolonCollection, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.RelatedHolons(name), nil
}

func (ref SmartReference) AllRelatedHolons() (map[holon.RelationshipName]*holon.HolonCollection, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.AllRelatedHolons(), nil
}

func (ref SmartReference) EssentialContent() (holon.EssentialHolonContent, error) {
	h, err := ref.resolve()
	if err != nil {
		return holon.EssentialHolonContent{}, err
	}
	return h.EssentialContent()
}

func (ref SmartReference) HolonID() (holon.HolonId, error) { return ref.holonID, nil }

func (ref SmartReference) Predecessor() (*holon.HolonId, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.OriginalID, nil
}

func (ref SmartReference) CloneHolon() (*holon.Holon, error) {
	h, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	return h.CloneTransient(), nil
}

// Saved holons are immutable (I2); SmartReference implements the
// Writable methods, but each one fails with NotAccessible — mutation
// requires staging a clone first via CloneHolon.
func (ref SmartReference) notWritable() error {
	return holonerr.New(holonerr.NotAccessible, "Write not accessible: saved holons are immutable")
}

func (ref SmartReference) WithPropertyValue(holon.PropertyName, holon.PropertyValue) error {
	return ref.notWritable()
}

func (ref SmartReference) RemovePropertyValue(holon.PropertyName) error { return ref.notWritable() }

func (ref SmartReference) AddRelatedHolons(holon.RelationshipName, []holon.HolonReference) error {
	return ref.notWritable()
}

func (ref SmartReference) RemoveRelatedHolons(holon.RelationshipName, []holon.HolonReference) error {
	return ref.notWritable()
}

func (ref SmartReference) UpdateOriginalID(*holon.HolonId) error { return ref.notWritable() }

func (ref SmartReference) CollectionKey() (string, error) { return ref.Key() }

func (ref SmartReference) Equal(other holon.HolonReference) bool {
	o, ok := other.(SmartReference)
	return ok && o.holonID == ref.holonID
}

var _ Readable = SmartReference{}
var _ holon.HolonReference = SmartReference{}
