package spacesim

import "errors"

var (
	// ErrNonConvergence is returned when a root finder exhausts its iteration budget.
	ErrNonConvergence = errors.New("iteration did not converge")
	// ErrUnsupportedOrbitClass is returned when an algorithm cannot handle the orbit class of its input.
	ErrUnsupportedOrbitClass = errors.New("unsupported orbit class")
	// ErrUnknownObject is returned when a handle does not refer to a tracked object.
	ErrUnknownObject = errors.New("unknown object")
	// ErrInsufficientFuel is returned when a burn requires more fuel than is left.
	ErrInsufficientFuel = errors.New("insufficient fuel")
	// ErrDegenerateTransfer is returned for transfers whose geometry does not define a plane.
	ErrDegenerateTransfer = errors.New("degenerate transfer geometry")
	// ErrNotARocket is returned when an engine command targets an object without stages.
	ErrNotARocket = errors.New("object is not a rocket")
	// ErrInvalidPrimary is returned when a primary body reference would not terminate at the root.
	ErrInvalidPrimary = errors.New("invalid primary body")
)

// ErrNumericalInstability is returned when an integration step produces non finite values.
var ErrNumericalInstability = errors.New("numerical instability")
