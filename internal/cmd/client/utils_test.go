package client

import (
	"testing"

	"github.com/rzbill/strand/pkg/stream"
	"github.com/rzbill/strand/pkg/token"
)

func TestDecodedEventJSONPayload(t *testing.T) {
	ev := stream.Event{
		Token:    token.NewGlobal(7),
		TypeName: "order.placed",
		Payload:  []byte(`{"amount":5}`),
	}
	out := decodedEvent(ev)
	if out["type"] != "order.placed" {
		t.Fatalf("type = %v", out["type"])
	}
	if out["position"] != int64(7) {
		t.Fatalf("position = %v", out["position"])
	}
	if _, ok := out["payload_json"]; !ok {
		t.Fatalf("expected payload_json, got %v", out)
	}
}

func TestDecodedEventTextAndBinaryPayloads(t *testing.T) {
	ev := stream.Event{Token: token.NewGlobal(1), TypeName: "x", Payload: []byte("plain text")}
	if out := decodedEvent(ev); out["payload_text"] != "plain text" {
		t.Fatalf("expected payload_text, got %v", out)
	}

	ev.Payload = []byte{0xff, 0xfe, 0x00}
	if out := decodedEvent(ev); out["payload_b64"] == nil {
		t.Fatalf("expected payload_b64 for binary payload, got %v", out)
	}
}

func TestDecodedToken(t *testing.T) {
	out := decodedToken(token.NewGlobal(42))
	if out["position"] != int64(42) {
		t.Fatalf("position = %v", out["position"])
	}
	if out["token"] == nil {
		t.Fatalf("expected token encoding, got %v", out)
	}

	if out := decodedToken(nil); len(out) != 0 {
		t.Fatalf("nil token should decode to an empty map, got %v", out)
	}
}
