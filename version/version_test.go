package version_test

import (
	"runtime"
	"strings"
	"testing"

	"github.com/vsariola/gmsynth/version"
)

func TestDescribe(t *testing.T) {
	d := version.Describe("gmsynth-play")
	if !strings.HasPrefix(d, "gmsynth-play ") || !strings.HasSuffix(d, " "+runtime.Version()) {
		t.Errorf("unexpected version line %q", d)
	}
}
