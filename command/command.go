package command

import "fmt"

// Kind tags the variant carried by a Command.
type Kind uint8

const (
	KindParam Kind = iota + 1
	KindNoteOn
	KindNoteOff
)

func (k Kind) String() string {
	switch k {
	case KindParam:
		return "param"
	case KindNoteOn:
		return "note-on"
	case KindNoteOff:
		return "note-off"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Command is a control event travelling from a control goroutine to the audio
// goroutine. It is a plain value: copying it is the only way to share it.
//
// Only the fields of the active variant are meaningful:
//
//	KindParam    Node, Index, Value
//	KindNoteOn   Pitch, Value (velocity)
//	KindNoteOff  Pitch, Value (velocity)
type Command struct {
	Kind  Kind
	Node  uint32
	Index uint32
	Pitch int32
	Value float32
}

// Param sets parameter index of graph node to value.
func Param(node, index uint32, value float32) Command {
	return Command{Kind: KindParam, Node: node, Index: index, Value: value}
}

// NoteOn starts pitch with velocity.
func NoteOn(pitch int32, velocity float32) Command {
	return Command{Kind: KindNoteOn, Pitch: pitch, Value: velocity}
}

// NoteOff releases pitch with velocity.
func NoteOff(pitch int32, velocity float32) Command {
	return Command{Kind: KindNoteOff, Pitch: pitch, Value: velocity}
}

// Velocity returns the note velocity of a NoteOn/NoteOff command.
func (c Command) Velocity() float32 {
	return c.Value
}

func (c Command) String() string {
	switch c.Kind {
	case KindParam:
		return fmt.Sprintf("param(node=%d, index=%d, value=%g)", c.Node, c.Index, c.Value)
	case KindNoteOn, KindNoteOff:
		return fmt.Sprintf("%s(pitch=%d, velocity=%g)", c.Kind, c.Pitch, c.Value)
	default:
		return c.Kind.String()
	}
}
