package simulation

import "github.com/pkg/errors"

var (
	// ErrInvalidConfiguration is returned by Config.Validate and the builder
	// before any round runs.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrUnknownParent means a block was appended to a parent the tree does not
	// hold. The engine treats it as fatal.
	ErrUnknownParent = errors.New("unknown parent")
	// ErrUnknownBlock is returned when publishing a block the tree does not hold.
	ErrUnknownBlock = errors.New("unknown block")
	// ErrInvalidAction marks a decision that references blocks the deciding
	// participant cannot see, or that is otherwise malformed.
	ErrInvalidAction = errors.New("invalid action")
	// ErrExhaustedRandomness is returned when an external discoverer sequence
	// runs out before the round limit.
	ErrExhaustedRandomness = errors.New("exhausted randomness")
	// ErrEngineState is returned when Run is called on an engine that already ran.
	ErrEngineState = errors.New("engine is not idle")
)

func invalidConfig(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfiguration, format, args...)
}

func invalidAction(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidAction, format, args...)
}
