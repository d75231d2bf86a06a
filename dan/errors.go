package dan

import "errors"

var (
	errNodeNotFound         = errors.New("dan: committed node not found in chain-db")
	errNoRetainedUnitOfWork = errors.New("dan: no retained state-db unit-of-work at decide")
)
