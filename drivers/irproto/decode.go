package irproto

// matchers, in fixed order. First match wins.
var matchers = []func(Pulses) (Command, bool){
	matchNEC,
	matchRC5,
	matchSony,
}

// Decode attempts to identify a protocol in seq. ok=false means no protocol
// matched and the caller should keep the sequence as a raw code. Sequences
// shorter than one mark/space pair are rejected without attempting a match.
func Decode(seq Pulses) (Command, bool) {
	if len(seq) < 2 {
		return Command{}, false
	}
	for _, m := range matchers {
		if cmd, ok := m(seq); ok {
			return cmd, true
		}
	}
	return Command{}, false
}
