package dlge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAtEnd means container records did not end exactly on the root reference.
	ErrNotAtEnd = errors.New("did not reach end of stream")
	// ErrInvalidDocument reports document which does not have expected shape.
	ErrInvalidDocument = errors.New("malformed document")
	ErrInvalidWeight   = errors.New("invalid weight")
	// ErrCapacity is returned when container index does not fit packed reference.
	ErrCapacity = errors.New("too many containers")
)

// ReferenceError reports a reference between containers which does not
// resolve or is not allowed for the parent.
type ReferenceError struct {
	Parent Kind
	Child  Kind
	// Index is packed (or, when encoding, child position) index, -1 when unknown.
	Index  int
	Reason string
}

func (e *ReferenceError) Error() string {
	parent := "root"
	if e.Parent != 0 {
		parent = e.Parent.String()
	}
	if e.Index < 0 {
		return fmt.Sprintf("invalid reference from %s to %s: %s", parent, e.Child, e.Reason)
	}
	return fmt.Sprintf("invalid reference from %s to %s #%d: %s", parent, e.Child, e.Index, e.Reason)
}

// ContainerError reports unknown container type or container which may not
// appear where it was found.
type ContainerError struct {
	Tag    uint8
	Reason string
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("invalid container %s: %s", Kind(e.Tag), e.Reason)
}
