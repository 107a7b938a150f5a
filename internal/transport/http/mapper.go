package http

import (
	"encoding/json"

	"github.com/driftchat/driftchat-server/internal/core"
	"github.com/driftchat/driftchat-server/internal/proto"
)

// inboundToCommand maps a wire envelope to a core command. A non-nil
// *proto.Error means the event was malformed or unauthorized and should be
// answered without touching the hub.
func (h *WSHandler) inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeHello:
		var hello proto.HelloData
		if err := json.Unmarshal(inbound.Data, &hello); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed hello payload"}
		}
		if hello.Protocol > proto.ProtocolVersion {
			return nil, &proto.Error{Code: "unsupported_protocol", Msg: "protocol version too new"}
		}
		user := hello.User
		if hello.Token != "" {
			// A presented credential must check out, and its username wins
			// over whatever the client announced.
			claims, err := h.auth.ValidateToken(hello.Token)
			if err != nil {
				return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "invalid token"}
			}
			user = claims.Username
		}
		if user == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user is required"}
		}
		return &core.Command{
			Kind:     core.CommandAnnounce,
			Identity: user,
		}, nil
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed message payload"}
		}
		if msg.Text == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "text is required"}
		}
		return &core.Command{
			Kind: core.CommandSendGroup,
			Text: msg.Text,
		}, nil
	case proto.InboundTypeDirect:
		var dm proto.DirectData
		if err := json.Unmarshal(inbound.Data, &dm); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed dm payload"}
		}
		if dm.To == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "to is required"}
		}
		if dm.Text == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "text is required"}
		}
		return &core.Command{
			Kind:     core.CommandSendDirect,
			Identity: dm.To,
			Text:     dm.Text,
		}, nil
	case proto.InboundTypeHistory:
		return &core.Command{
			Kind:          core.CommandGroupHistory,
			CorrelationID: inbound.ID,
		}, nil
	case proto.InboundTypeDirectHistory:
		var hist proto.DirectHistoryData
		if err := json.Unmarshal(inbound.Data, &hist); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed dm_history payload"}
		}
		if hist.With == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "with is required"}
		}
		return &core.Command{
			Kind:          core.CommandDirectHistory,
			Identity:      hist.With,
			CorrelationID: inbound.ID,
		}, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventGroupMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data:  eventMessage(event.Message),
		}
	case core.EventDirectMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameDirect,
			Data:  eventMessage(event.Message),
		}
	case core.EventFriendOnline:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameFriendOnline,
			Data:  proto.EventPresence{User: event.User},
		}
	case core.EventFriendOffline:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameFriendOffline,
			Data:  proto.EventPresence{User: event.User},
		}
	case core.EventHistory:
		messages := make([]proto.EventMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, eventMessage(msg))
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			ID:    event.CorrelationID,
			Event: proto.EventNameHistory,
			Data: proto.EventHistory{
				With:     event.User,
				Messages: messages,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventMessage(msg core.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:      msg.ID,
		From:    msg.Sender,
		To:      msg.Recipient,
		Text:    msg.Body,
		Private: msg.IsPrivate,
		TS:      msg.CreatedAt.UnixMilli(),
	}
}
