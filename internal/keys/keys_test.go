package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoin(t *testing.T) {
	assert.Equal(t, Key("surface-ponded_depth"), Join("surface", "ponded_depth"))
	assert.Equal(t, Key("pressure"), Join("", "pressure"))
}

func TestDomainAndVarName(t *testing.T) {
	k := Join("surface", "ponded_depth")
	assert.Equal(t, "surface", Domain(k))
	assert.Equal(t, "ponded_depth", VarName(k))

	bare := Key("pressure")
	assert.Equal(t, "", Domain(bare))
	assert.Equal(t, "pressure", VarName(bare))
}

func TestKeyTagString(t *testing.T) {
	assert.Equal(t, "pressure", KeyTag{Key: "pressure"}.String())
	assert.Equal(t, "pressure@next", KeyTag{Key: "pressure", Tag: Next}.String())
}

func TestParse(t *testing.T) {
	assert.Equal(t, KeyTag{Key: "pressure"}, Parse("pressure"))
	assert.Equal(t, KeyTag{Key: "pressure", Tag: Next}, Parse("pressure@next"))
	assert.Equal(t, KeyTag{Key: "surface-depth", Tag: "copy"}, Parse("surface-depth@copy"))
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{"pressure", "pressure@next", "surface-ponded_depth@copy"} {
		assert.Equal(t, s, Parse(s).String())
	}
}

func TestDerivName(t *testing.T) {
	got := DerivName("runoff", KeyTag{Key: "precipitation"})
	assert.Equal(t, Key("drunoff_dprecipitation"), got)

	got = DerivName("runoff", KeyTag{Key: "depth", Tag: Next})
	assert.Equal(t, Key("drunoff_ddepth@next"), got)
}
