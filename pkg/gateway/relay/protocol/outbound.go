package protocol

// Text is one increment of the spoken response. Last is true only for the
// single frame carrying a complete non-streamed reply; streamed increments,
// terminal ones included, always carry Last=false. The relay's TTS relies
// on both shapes, so neither may be normalized to the other.
type Text struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	Last  bool   `json:"last"`
}

func NewText(token string, last bool) Text {
	return Text{Type: "text", Token: token, Last: last}
}

// Language switches the active TTS and transcription locale mid-call.
type Language struct {
	Type                  string `json:"type"`
	TTSLanguage           string `json:"ttsLanguage,omitempty"`
	TranscriptionLanguage string `json:"transcriptionLanguage,omitempty"`
}

func NewLanguage(tts, transcription string) Language {
	return Language{Type: "language", TTSLanguage: tts, TranscriptionLanguage: transcription}
}

// End tells the relay to terminate the call and route the caller using the
// attached handoff payload.
type End struct {
	Type        string `json:"type"`
	HandoffData string `json:"handoffData,omitempty"`
}

func NewEnd(handoffData string) End {
	return End{Type: "end", HandoffData: handoffData}
}

// OutboundError reports a malformed inbound frame or an out-of-sequence
// condition. The connection stays open.
type OutboundError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) OutboundError {
	return OutboundError{Type: "error", Message: message}
}
