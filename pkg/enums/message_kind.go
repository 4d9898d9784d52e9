package enums

import "slices"

type MessageKind string

const (
	MessageSystem MessageKind = "SYSTEM"
	MessageUser   MessageKind = "USER"
)

var validMessageKinds = []MessageKind{
	MessageSystem,
	MessageUser,
}

func (m MessageKind) String() string {
	return string(m)
}

func (m MessageKind) IsValid() bool { return slices.Contains(validMessageKinds, m) }
