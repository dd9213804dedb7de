package core

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Message kinds. Each room type handles its own closed subset;
// anything else is dropped without touching room state.
const (
	kindPlayerInput  = "playerInput"
	kindChat         = "chatMessage"
	kindChatShort    = "chat"
	kindReady        = "ready"
	kindState        = "state"
	kindLobbyState   = "lobbyState"
	kindPlayerJoined = "playerJoined"
	kindPlayerLeft   = "playerLeft"
	kindGameStart    = "gameStart"
)

var validate = validator.New()

type envelope struct {
	Type string `json:"type"`
}

// inputPayload is the directional intent sent by game clients. The
// sequence number is echoed for client-side reconciliation only; the
// server does not enforce ordering on it.
type inputPayload struct {
	Type     string `json:"type"`
	Left     bool   `json:"left"`
	Right    bool   `json:"right"`
	Up       bool   `json:"up"`
	Down     bool   `json:"down"`
	Sequence int64  `json:"sequence" validate:"gte=0"`
}

type chatPayload struct {
	Type    string `json:"type"`
	Message string `json:"message" validate:"required,max=512"`
}

// decodeEnvelope extracts the kind tag. Returns false on frames that
// are not JSON objects; those are dropped.
func decodeEnvelope(data []byte) (string, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Debug().Str("module", "core.protocol").Err(err).Msg("bad envelope")
		return "", false
	}
	return env.Type, true
}

// decodeInput parses and validates a playerInput payload. A malformed
// or invalid payload leaves the sender's state untouched.
func decodeInput(data []byte) (inputPayload, bool) {
	var p inputPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Debug().Str("module", "core.protocol").Err(err).Msg("bad input payload")
		return inputPayload{}, false
	}
	if err := validate.Struct(p); err != nil {
		log.Debug().Str("module", "core.protocol").Err(err).Msg("invalid input payload")
		return inputPayload{}, false
	}
	return p, true
}

func decodeChat(data []byte) (chatPayload, bool) {
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Debug().Str("module", "core.protocol").Err(err).Msg("bad chat payload")
		return chatPayload{}, false
	}
	if err := validate.Struct(p); err != nil {
		log.Debug().Str("module", "core.protocol").Err(err).Msg("invalid chat payload")
		return chatPayload{}, false
	}
	return p, true
}

// encode marshals an outbound message. Marshal errors are programming
// defects in the message structs, so they are logged and swallowed.
func encode(v any) (Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Str("module", "core.protocol").Err(err).Msg("marshal outbound")
		return nil, false
	}
	return b, true
}
