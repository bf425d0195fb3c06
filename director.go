package gmsynth

type (
	// Director decides which performers of an instrument sound for a note
	// event. It returns the matches in the order they should be allocated;
	// the first match is the one exclusive class cut-off is performed for.
	Director interface {
		NoteOn(key, velocity int) []Match
		NoteOff(key, velocity int) []Match
	}

	// Match is a performer chosen by a Director, optionally with extra
	// connection blocks for this particular note.
	Match struct {
		Performer   int
		Connections []ConnectionBlock
	}

	DirectorFactory func(performers []Performer) Director

	// StandardDirector matches performers by key and velocity range.
	// Release-triggered performers only answer NoteOff; all others only
	// NoteOn.
	StandardDirector struct {
		performers []Performer
		noteOff    bool // at least one release-triggered performer
	}
)

func NewStandardDirector(performers []Performer) Director {
	d := &StandardDirector{performers: performers}
	for _, p := range performers {
		if p.ReleaseTriggered {
			d.noteOff = true
			break
		}
	}
	return d
}

func (d *StandardDirector) NoteOn(key, velocity int) []Match {
	return d.match(key, velocity, false)
}

func (d *StandardDirector) NoteOff(key, velocity int) []Match {
	if !d.noteOff {
		return nil
	}
	return d.match(key, velocity, true)
}

func (d *StandardDirector) match(key, velocity int, release bool) []Match {
	var ret []Match
	for i := range d.performers {
		p := &d.performers[i]
		if p.ReleaseTriggered == release && p.Matches(key, velocity) {
			ret = append(ret, Match{Performer: i})
		}
	}
	return ret
}
