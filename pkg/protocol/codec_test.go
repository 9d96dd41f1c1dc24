package protocol

import (
	"errors"
	"testing"
)

func TestCodecFor(t *testing.T) {
	tests := []struct {
		vsn     string
		want    string
		binary  bool
		wantErr bool
	}{
		{vsn: "", want: "json"},
		{vsn: "json", want: "json"},
		{vsn: "msgpack", want: "msgpack", binary: true},
		{vsn: "phoenix", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.vsn, func(t *testing.T) {
			c, err := CodecFor(tt.vsn)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCodec) {
					t.Fatalf("expected ErrUnknownCodec, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", c.Name(), tt.want)
			}
			if c.Binary() != tt.binary {
				t.Errorf("Binary() = %v, want %v", c.Binary(), tt.binary)
			}
		})
	}
}

func TestJSONCodec_DecodeClientEvent(t *testing.T) {
	data := []byte(`{"ref":"7","topic":"signup","event":"change","payload":{"field":"name","value":"홍길동"}}`)

	msg, err := NewJSONCodec().Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Ref != "7" || msg.Topic != "signup" || msg.Event != "change" {
		t.Errorf("unexpected envelope: %+v", msg)
	}
	if got := msg.String("value"); got != "홍길동" {
		t.Errorf("value = %q", got)
	}
	if !msg.IsUserEvent() {
		t.Error("change should be a user event")
	}
}

func TestCodecs_RejectMalformed(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte(`{malformed`),
		[]byte(`{"topic":"signup"}`),
		[]byte(`[]`),
	}

	for _, c := range []Codec{NewJSONCodec(), NewMsgPackCodec()} {
		for _, in := range inputs {
			if _, err := c.Decode(in); !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("%s.Decode(%q) = %v, want ErrInvalidMessage", c.Name(), in, err)
			}
		}
	}
}

func TestMsgPackCodec_RenderMessage(t *testing.T) {
	c := NewMsgPackCodec()
	out, err := c.Encode(RenderMessage("signup", "<p>ok</p>", 3))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	msg, err := c.Decode(out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Event != EventRender {
		t.Errorf("event = %q", msg.Event)
	}
	if msg.String("html") != "<p>ok</p>" {
		t.Errorf("html = %q", msg.String("html"))
	}
	if msg.IsUserEvent() {
		t.Error("render must not be dispatched to components")
	}
}

func TestReplies(t *testing.T) {
	ok := OkReply("1", "signup", map[string]any{"html": "x"})
	if ok.Event != EventReply || ok.Ref != "1" || ok.Payload["status"] != StatusOK {
		t.Errorf("unexpected ok reply: %+v", ok)
	}

	bad := ErrorReply("2", "signup", "boom")
	resp, _ := bad.Payload["response"].(map[string]any)
	if bad.Payload["status"] != StatusError || resp["reason"] != "boom" {
		t.Errorf("unexpected error reply: %+v", bad)
	}
}

// FuzzJSONDecode checks that anything the JSON codec accepts survives a
// re-encode.
func FuzzJSONDecode(f *testing.F) {
	f.Add([]byte(`{"ref":"1","topic":"signup","event":"next","payload":{}}`))
	f.Add([]byte(`{"ref":"","topic":"","event":"submit","payload":null}`))
	f.Add([]byte(`{"event":"blur","payload":{"field":"email"}}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"ref": 123}`))

	codec := NewJSONCodec()

	f.Fuzz(func(t *testing.T, data []byte) {
		msg, err := codec.Decode(data)
		if err != nil {
			return
		}

		out, err := codec.Encode(msg)
		if err != nil {
			return
		}

		msg2, err := codec.Decode(out)
		if err != nil {
			t.Fatalf("failed to re-parse serialized message: %v", err)
		}
		if msg.Ref != msg2.Ref || msg.Topic != msg2.Topic || msg.Event != msg2.Event {
			t.Errorf("envelope mismatch: %+v != %+v", msg, msg2)
		}
	})
}
