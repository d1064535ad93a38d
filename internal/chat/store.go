package chat

// store keeps messages in display order. It is not safe for concurrent use;
// the controller serializes access.
type store struct {
	messages []Message
	index    map[string]int
}

func newStore(history []Message) *store {
	s := &store{
		messages: make([]Message, 0, len(history)),
		index:    make(map[string]int, len(history)),
	}
	for _, m := range history {
		s.append(m)
	}
	return s
}

func (s *store) append(m Message) {
	s.index[m.ID] = len(s.messages)
	s.messages = append(s.messages, m.clone())
}

// get returns a pointer into the backing slice, valid until the next append
func (s *store) get(id string) (*Message, int, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, -1, false
	}
	return &s.messages[i], i, true
}

func (s *store) len() int {
	return len(s.messages)
}

// upTo copies messages [0, i]
func (s *store) upTo(i int) []Message {
	if i >= len(s.messages) {
		i = len(s.messages) - 1
	}
	out := make([]Message, 0, i+1)
	for _, m := range s.messages[:i+1] {
		out = append(out, m.clone())
	}
	return out
}

func (s *store) snapshot() []Message {
	return s.upTo(len(s.messages) - 1)
}
