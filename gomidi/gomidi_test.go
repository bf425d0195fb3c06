package gomidi

import "testing"

func TestPick(t *testing.T) {
	names := []string{"Midi Through:0", "USB Keyboard:0", "USB Keyboard:1"}
	for _, tc := range []struct {
		name      string
		prefix    string
		takeFirst bool
		want      int
		ok        bool
	}{
		{"Prefix", "USB", false, 1, true},
		{"TakeFirst", "", true, 0, true},
		{"NoMatch", "Piano", false, 0, false},
		{"Nothing", "", false, 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := pick(names, tc.prefix, tc.takeFirst)
			if got != tc.want || ok != tc.ok {
				t.Errorf("got %d, %v; want %d, %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}
