package instruction

// Speaker plays or forwards an announcement.
type Speaker interface {
	Speak(text string)
}

// SpeakerFunc adapts a function to Speaker.
type SpeakerFunc func(text string)

func (f SpeakerFunc) Speak(text string) { f(text) }

// Announcer only speaks when the instruction differs from the last one spoken.
type Announcer struct {
	speaker Speaker
	last    string
}

func NewAnnouncer(speaker Speaker) *Announcer {
	return &Announcer{speaker: speaker}
}

// Announce reports whether text was spoken.
func (a *Announcer) Announce(text string) bool {
	if text == a.last {
		return false
	}
	a.last = text
	if a.speaker != nil {
		a.speaker.Speak(text)
	}
	return true
}

// Last returns the last announced instruction.
func (a *Announcer) Last() string {
	return a.last
}
