package enums

type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindMedia MessageKind = "media"
)

func (k MessageKind) Valid() bool {
	switch k {
	case MessageKindText, MessageKindMedia:
		return true
	default:
		return false
	}
}
