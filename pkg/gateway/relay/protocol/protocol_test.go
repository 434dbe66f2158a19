package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeSetup(t *testing.T) {
	data := []byte(`{
		"type": "setup",
		"sessionId": "VX123",
		"callSid": "CA456",
		"from": "+15550001111",
		"to": "+15550002222",
		"direction": "inbound",
		"callStatus": "ringing"
	}`)

	frame, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	setup, ok := frame.(Setup)
	if !ok {
		t.Fatalf("frame type = %T", frame)
	}
	if setup.Key() != "CA456" {
		t.Fatalf("Key() = %q, want callSid", setup.Key())
	}
	if setup.From != "+15550001111" || setup.Direction != "inbound" {
		t.Fatalf("setup = %+v", setup)
	}
}

func TestDecodeSetupFallsBackToSessionID(t *testing.T) {
	frame, err := Decode([]byte(`{"type":"setup","sessionId":"VX123"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame.(Setup).Key() != "VX123" {
		t.Fatalf("Key() = %q", frame.(Setup).Key())
	}
}

func TestDecodeSetupRequiresAKey(t *testing.T) {
	_, err := Decode([]byte(`{"type":"setup"}`))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if decodeErr.Param != "callSid" {
		t.Fatalf("param = %q", decodeErr.Param)
	}
}

func TestDecodePrompt(t *testing.T) {
	frame, err := Decode([]byte(`{"type":"prompt","voicePrompt":"what do I owe","lang":"en-US","last":true}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := frame.(Prompt)
	if p.VoicePrompt != "what do I owe" || !p.Last {
		t.Fatalf("prompt = %+v", p)
	}
}

func TestDecodeInterrupt(t *testing.T) {
	frame, err := Decode([]byte(`{"type":"interrupt","utteranceUntilInterrupt":"your bill is","durationUntilInterruptMs":1250}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	i := frame.(Interrupt)
	if i.UtteranceUntilInterrupt != "your bill is" || i.DurationUntilInterrupt != 1250 {
		t.Fatalf("interrupt = %+v", i)
	}
}

func TestDecodeDTMFRequiresDigit(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"dtmf","digit":"5"}`)); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	_, err := Decode([]byte(`{"type":"dtmf"}`))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"media","payload":"xxx"}`))
	var unknown *UnknownTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownTypeError", err)
	}
	if unknown.Type != "media" {
		t.Fatalf("unknown.Type = %q", unknown.Type)
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
}

func TestDecodeMissingType(t *testing.T) {
	_, err := Decode([]byte(`{"digit":"1"}`))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if decodeErr.Param != "type" {
		t.Fatalf("param = %q", decodeErr.Param)
	}
}

func TestOutboundFrameShapes(t *testing.T) {
	cases := []struct {
		frame any
		want  string
	}{
		{NewText("Hel", false), `{"type":"text","token":"Hel","last":false}`},
		{NewText("", true), `{"type":"text","token":"","last":true}`},
		{NewLanguage("es-US", "es-US"), `{"type":"language","ttsLanguage":"es-US","transcriptionLanguage":"es-US"}`},
		{NewEnd(`{"reasonCode":"live-agent-handoff"}`), `{"type":"end","handoffData":"{\"reasonCode\":\"live-agent-handoff\"}"}`},
		{NewError("session not initialized"), `{"type":"error","message":"session not initialized"}`},
	}

	for _, tc := range cases {
		data, err := json.Marshal(tc.frame)
		if err != nil {
			t.Fatalf("marshal %T: %v", tc.frame, err)
		}
		if string(data) != tc.want {
			t.Fatalf("frame %T = %s, want %s", tc.frame, data, tc.want)
		}
	}
}
