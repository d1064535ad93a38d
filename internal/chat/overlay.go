package chat

// TranslatingPlaceholder is displayed while a translation is in flight
const TranslatingPlaceholder = "Translating…"

// overlay holds display-time substitutions keyed by message id. The
// canonical message content is never touched.
type overlay struct {
	original   map[string]string
	translated map[string]string
	showing    map[string]bool
	inFlight   map[string]bool
	display    map[string]string
}

func newOverlay() *overlay {
	return &overlay{
		original:   make(map[string]string),
		translated: make(map[string]string),
		showing:    make(map[string]bool),
		inFlight:   make(map[string]bool),
		display:    make(map[string]string),
	}
}

// captureOriginal records the displayed text seen before the first
// successful translation, tail included
func (o *overlay) captureOriginal(id, text string) {
	if _, ok := o.original[id]; !ok {
		o.original[id] = text
	}
}

func (o *overlay) displayed(id string) (string, bool) {
	text, ok := o.display[id]
	return text, ok
}

// drop forgets every entry for id
func (o *overlay) drop(id string) {
	delete(o.original, id)
	delete(o.translated, id)
	delete(o.showing, id)
	delete(o.inFlight, id)
	delete(o.display, id)
}
