package relay

import (
	"encoding/json"
	"fmt"
)

// Frame event names.
const (
	EventConnected = "connected"
	EventJoin      = "join"
	EventJoined    = "joined"
	EventLeave     = "leave"
	EventLeft      = "left"
	EventMessage   = "message"
)

// CommandKind identifies a parsed client command.
type CommandKind int

const (
	CommandJoin CommandKind = iota + 1
	CommandLeave
	CommandMessage
)

// Command is a validated inbound client frame.
type Command struct {
	Kind CommandKind
	// Room is set for join and leave, and for messages scoped to a room.
	Room string
	Text string
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ParseCommand validates a raw client frame. It reports false for anything
// that is not a well-formed join, leave or message frame; such frames must be
// ignored.
func ParseCommand(raw []byte) (Command, bool) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Command{}, false
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(frame.Data, &data); err != nil || data == nil {
		return Command{}, false
	}

	switch frame.Event {
	case EventJoin, EventLeave:
		room, present, ok := stringField(data, "client_id")
		if !present || !ok || room == "" {
			return Command{}, false
		}
		kind := CommandJoin
		if frame.Event == EventLeave {
			kind = CommandLeave
		}
		return Command{Kind: kind, Room: room}, true

	case EventMessage:
		text, present, ok := stringField(data, "message")
		if present && !ok {
			return Command{}, false
		}
		cmd := Command{Kind: CommandMessage, Text: text}

		room, present, ok := stringField(data, "room")
		if present {
			if !ok || room == "" {
				return Command{}, false
			}
			cmd.Room = room
		}
		return cmd, true

	default:
		return Command{}, false
	}
}

// stringField reports whether key is present and, if so, whether it holds a
// JSON string.
func stringField(data map[string]json.RawMessage, key string) (value string, present, ok bool) {
	raw, present := data[key]
	if !present {
		return "", false, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", true, false
	}
	return value, true, true
}

type outboundFrame struct {
	Event string       `json:"event"`
	Data  outboundData `json:"data"`
}

type outboundData struct {
	Message string `json:"message"`
	Room    string `json:"room,omitempty"`
}

// EncodeFrame renders an outbound frame. room is omitted when empty.
func EncodeFrame(event, message, room string) ([]byte, error) {
	b, err := json.Marshal(outboundFrame{
		Event: event,
		Data:  outboundData{Message: message, Room: room},
	})
	if err != nil {
		return nil, fmt.Errorf("relay: encode %s frame: %w", event, err)
	}
	return b, nil
}
