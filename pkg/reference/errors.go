package reference

import "github.com/cuemby/holontx/pkg/holonerr"

func holonErrNotYetSaved() error {
	return holonerr.New(holonerr.InvalidHolonRef, "holon has not been committed; no HolonId assigned yet")
}
