package holon

import (
	"fmt"

	"github.com/cuemby/holontx/pkg/holonerr"
)

// Phase is the lifecycle phase of a Holon: Transient, Staged, or Saved.
type Phase string

const (
	PhaseTransient Phase = "Transient"
	PhaseStaged    Phase = "Staged"
	PhaseSaved     Phase = "Saved"
)

// HolonState gates mutability independent of phase: a holon becomes
// Immutable when committed or abandoned (I2).
type HolonState string

const (
	Mutable   HolonState = "Mutable"
	Immutable HolonState = "Immutable"
)

// ValidationState tracks descriptor-driven validation, carried as a
// field on every holon regardless of phase.
type ValidationState string

const (
	NoDescriptor      ValidationState = "NoDescriptor"
	ValidationRequired ValidationState = "ValidationRequired"
	Validated         ValidationState = "Validated"
	Invalid           ValidationState = "Invalid"
)

// StagedKind is the staged_state of a Staged-phase holon.
type StagedKind string

const (
	ForCreate       StagedKind = "ForCreate"
	ForUpdate       StagedKind = "ForUpdate"
	ForUpdateChanged StagedKind = "ForUpdateChanged"
	StagedAbandoned StagedKind = "Abandoned"
	Committed       StagedKind = "Committed"
)

// StagedPhase carries staged-state plus the SavedId a Committed holon
// was assigned; CommittedID is the zero HolonId for every other Kind.
type StagedPhase struct {
	Kind        StagedKind
	CommittedID HolonId
}

const keyProperty PropertyName = "key"

// Holon is a typed record carrying a property map and relationship
// map, owned at any moment by exactly one pool slot (pkg/pool). There
// is no per-Holon lock: the owning pool's lock serializes all
// structural mutation, so methods here assume single-writer access.
type Holon struct {
	Phase           Phase
	State           HolonState
	Validation      ValidationState
	Staged          StagedPhase
	Version         int
	PropertyMap     PropertyMap
	RelationshipMap map[RelationshipName]*HolonCollection
	OriginalID      *HolonId
	SavedID         *HolonId
	Errors          []error
}

// NewTransient creates an empty, mutable Transient holon.
func NewTransient() *Holon {
	return &Holon{
		Phase:           PhaseTransient,
		State:           Mutable,
		Validation:      ValidationRequired,
		PropertyMap:     make(PropertyMap),
		RelationshipMap: make(map[RelationshipName]*HolonCollection),
	}
}

// NewStagedForCreate creates a fresh Staged holon in the ForCreate
// staged_state.
func NewStagedForCreate() *Holon {
	h := NewTransient()
	h.Phase = PhaseStaged
	h.Version = 1
	h.Staged = StagedPhase{Kind: ForCreate}
	return h
}

// NewStagedForUpdate creates a Staged holon tracking a predecessor,
// in the ForUpdate staged_state.
func NewStagedForUpdate(original HolonId) *Holon {
	h := NewStagedForCreate()
	h.Staged = StagedPhase{Kind: ForUpdate}
	h.OriginalID = &original
	return h
}

// IsAccessible enforces access control for the holon's current phase
// and state (I2).
func (h *Holon) IsAccessible(accessType AccessType) error {
	notAccessible := func(detail string) error {
		return holonerr.New(holonerr.NotAccessible, "%s not accessible: %s", accessType, detail)
	}
	if h.Phase == PhaseSaved {
		switch accessType {
		case AccessRead:
			return nil
		default:
			return notAccessible("saved holons are immutable except for deletion metadata")
		}
	}
	if h.State == Immutable {
		if accessType == AccessRead {
			return nil
		}
		return notAccessible("holon state is Immutable")
	}
	if h.Phase == PhaseStaged {
		switch h.Staged.Kind {
		case StagedAbandoned:
			switch accessType {
			case AccessAbandon, AccessCommit:
				return nil
			default:
				return notAccessible("staged holon is Abandoned")
			}
		case Committed:
			return notAccessible("staged holon is Committed (terminal)")
		}
	}
	return nil
}

// Key returns the holon's primary key, read from the "key" property,
// or "" if the holon has no key (not every holon needs one).
func (h *Holon) Key() (string, error) {
	v, ok := h.PropertyMap.Get(keyProperty)
	if !ok || v == nil {
		return "", nil
	}
	return v.String(), nil
}

// VersionedKey returns "key@version"; it is an error to call this on
// a holon with no key, since the versioned key only makes sense for
// staged/transient holons that need Nursery-unique identity.
func (h *Holon) VersionedKey() (string, error) {
	key, err := h.Key()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", holonerr.New(holonerr.InvalidParameter, "holon has no key; versioned_key requires one")
	}
	return fmt.Sprintf("%s@%d", key, h.Version), nil
}

// IncrementVersion is called by pool.Pool.Insert on a versioned-key
// collision (I3).
func (h *Holon) IncrementVersion() error {
	if err := h.IsAccessible(AccessWrite); err != nil {
		return err
	}
	h.Version++
	return nil
}

// PropertyValue returns the named property's value and whether it is
// present: an absent property reports ok=false, while a property
// present with a nil value reports (nil, true).
func (h *Holon) PropertyValue(name PropertyName) (PropertyValue, bool) {
	return h.PropertyMap.Get(name)
}

// WithPropertyValue sets a property, transitioning a ForUpdate staged
// holon to ForUpdateChanged on first mutation.
func (h *Holon) WithPropertyValue(name PropertyName, value PropertyValue) error {
	if err := h.IsAccessible(AccessWrite); err != nil {
		return err
	}
	h.PropertyMap[name] = value
	h.markChanged()
	return nil
}

// RemovePropertyValue deletes a property from the map entirely.
func (h *Holon) RemovePropertyValue(name PropertyName) error {
	if err := h.IsAccessible(AccessWrite); err != nil {
		return err
	}
	delete(h.PropertyMap, name)
	h.markChanged()
	return nil
}

func (h *Holon) markChanged() {
	if h.Phase == PhaseStaged && h.Staged.Kind == ForUpdate {
		h.Staged.Kind = ForUpdateChanged
	}
}

// RelatedHolons returns the HolonCollection for relationshipName,
// creating an empty Staged (or Transient, for transient holons)
// collection on first access.
func (h *Holon) RelatedHolons(relationshipName RelationshipName) *HolonCollection {
	if c, ok := h.RelationshipMap[relationshipName]; ok {
		return c
	}
	var c *HolonCollection
	if h.Phase == PhaseTransient {
		c = NewTransientCollection()
	} else {
		c = NewStagedCollection()
	}
	h.RelationshipMap[relationshipName] = c
	return c
}

// AddRelatedHolons inserts refs into the named relationship's
// collection, creating the collection if absent.
func (h *Holon) AddRelatedHolons(relationshipName RelationshipName, refs []HolonReference) error {
	if err := h.IsAccessible(AccessWrite); err != nil {
		return err
	}
	c := h.RelatedHolons(relationshipName)
	if err := c.AddReferences(refs); err != nil {
		return err
	}
	h.markChanged()
	return nil
}

// RemoveRelatedHolons removes refs from the named relationship's
// collection. A missing relationship name is a no-op.
func (h *Holon) RemoveRelatedHolons(relationshipName RelationshipName, refs []HolonReference) error {
	if err := h.IsAccessible(AccessWrite); err != nil {
		return err
	}
	c, ok := h.RelationshipMap[relationshipName]
	if !ok {
		return nil
	}
	if err := c.RemoveReferences(refs); err != nil {
		return err
	}
	h.markChanged()
	return nil
}

// AllRelatedHolons returns the full relationship map.
func (h *Holon) AllRelatedHolons() map[RelationshipName]*HolonCollection {
	return h.RelationshipMap
}

// AbandonStagedChanges transitions a non-terminal Staged holon to
// Abandoned, freezing it.
func (h *Holon) AbandonStagedChanges() error {
	if h.Phase != PhaseStaged {
		return holonerr.New(holonerr.InvalidTransition, "only Staged holons can be abandoned")
	}
	switch h.Staged.Kind {
	case ForCreate, ForUpdate, ForUpdateChanged:
		h.Staged.Kind = StagedAbandoned
		h.State = Immutable
		return nil
	default:
		return holonerr.New(holonerr.InvalidTransition, "only uncommitted staged holons can be abandoned")
	}
}

// ToCommitted marks a Staged holon Committed with its assigned
// SavedId (I5): the staged record is retained but frozen.
func (h *Holon) ToCommitted(savedID HolonId) error {
	if h.Phase != PhaseStaged {
		return holonerr.New(holonerr.InvalidTransition, "only Staged holons can be committed")
	}
	h.Staged = StagedPhase{Kind: Committed, CommittedID: savedID}
	h.State = Immutable
	h.SavedID = &savedID
	return nil
}

// AddCommitError records a non-fatal error accumulated during commit
// processing (Pass 1 or Pass 2), without failing the whole commit.
func (h *Holon) AddCommitError(err error) {
	h.Errors = append(h.Errors, err)
}

// EssentialHolonContent is the comparison-friendly core of a holon:
// properties and key, excluding phase-specific metadata.
type EssentialHolonContent struct {
	Key         string
	PropertyMap PropertyMap
}

func (h *Holon) EssentialContent() (EssentialHolonContent, error) {
	key, err := h.Key()
	if err != nil {
		return EssentialHolonContent{}, err
	}
	return EssentialHolonContent{Key: key, PropertyMap: h.PropertyMap.Clone()}, nil
}

// CloneTransient returns a new Transient holon carrying this holon's
// properties. Its original_id is this holon's SavedID for a Saved
// source and this holon's own original_id otherwise. Relationships are
// not copied.
func (h *Holon) CloneTransient() *Holon {
	clone := NewTransient()
	clone.PropertyMap = h.PropertyMap.Clone()
	if h.Phase == PhaseSaved {
		id := h.SavedID
		clone.OriginalID = id
	} else {
		clone.OriginalID = h.OriginalID
	}
	return clone
}

func (h *Holon) Summarize() string {
	key, _ := h.Key()
	return fmt.Sprintf("Holon{phase=%s state=%s key=%q version=%d}", h.Phase, h.State, key, h.Version)
}
