// Command ws_smoke is a manual smoke test client: it announces an identity,
// sends a group message and optionally a directed message, then prints the
// first few server frames.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/driftchat/driftchat-server/internal/proto"
)

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to announce with hello")
	token := flag.String("token", "", "optional JWT; overrides the announced username")
	text := flag.String("text", "hello from smoke test", "message text to send")
	to := flag.String("to", "", "send a directed message to this user instead of the group")
	frames := flag.Int("frames", 3, "number of server frames to print before exiting")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(msgType string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			log.Fatalf("marshal %s: %v", msgType, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
			log.Fatalf("send %s: %v", msgType, err)
		}
	}

	mustSend(proto.InboundTypeHello, proto.HelloData{User: *user, Token: *token, Protocol: proto.ProtocolVersion})
	if *to != "" {
		mustSend(proto.InboundTypeDirect, proto.DirectData{To: *to, Text: *text})
	} else {
		mustSend(proto.InboundTypeMsg, proto.MsgData{Text: *text})
	}

	for i := 0; i < *frames; i++ {
		var outbound struct {
			Type  string          `json:"type"`
			ID    string          `json:"id,omitempty"`
			Event string          `json:"event,omitempty"`
			Data  json.RawMessage `json:"data,omitempty"`
			Error *proto.Error    `json:"error,omitempty"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			log.Fatalf("read: %v", err)
		}

		fmt.Printf("frame %d: type=%s", i+1, outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()
		if outbound.Error != nil {
			fmt.Printf("  error: code=%s msg=%q\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		switch outbound.Event {
		case proto.EventNameMessage, proto.EventNameDirect:
			var evt proto.EventMessage
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("  message: from=%s to=%s text=%q ts=%d\n", evt.From, evt.To, evt.Text, evt.TS)
				continue
			}
		case proto.EventNameFriendOnline, proto.EventNameFriendOffline:
			var evt proto.EventPresence
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("  presence: user=%s\n", evt.User)
				continue
			}
		}
		if len(outbound.Data) > 0 {
			fmt.Printf("  raw data: %s\n", string(outbound.Data))
		}
	}
}
