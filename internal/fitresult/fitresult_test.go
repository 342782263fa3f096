package fitresult

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitgrid/fitgrid/internal/fsutil"
)

func TestDecode(t *testing.T) {
	r, err := Decode([]byte(`{"CLs_obs": 0.04, "CLs_exp": [0.01, 0.02, 0.03, 0.05, 0.08]}`))
	require.NoError(t, err)

	want := Result{CLsExp: []float64{0.01, 0.02, 0.03, 0.05, 0.08}, CLsObs: 0.04}
	if diff := cmp.Diff(r, want); diff != "" {
		t.Errorf("Decode mismatch (-got +want):\n%s", diff)
	}
	assert.Equal(t, 0.03, r.Expected())
	assert.Equal(t, 0.01, r.CLsExp[Minus2Sigma])
	assert.Equal(t, 0.08, r.CLsExp[Plus2Sigma])
}

func TestDecodeNonFinite(t *testing.T) {
	r, err := Decode([]byte(`{"CLs_obs": NaN, "CLs_exp": [0.01, -Infinity, 0.03, Infinity, NaN]}`))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(r.CLsObs))
	assert.True(t, math.IsInf(r.CLsExp[Minus1Sigma], -1))
	assert.True(t, math.IsInf(r.CLsExp[Plus1Sigma], 1))
	assert.True(t, math.IsNaN(r.CLsExp[Plus2Sigma]))
	assert.Equal(t, 0.03, r.Expected())
}

func TestSaveNonFinite(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	in := Result{CLsExp: []float64{0.1, 0.2, math.NaN(), 0.4, math.Inf(1)}, CLsObs: math.NaN()}
	require.NoError(t, Save(mfs, "r.json", in))

	data, err := mfs.ReadFile("r.json")
	require.NoError(t, err)
	assert.Equal(t, `{"CLs_exp":[0.1,0.2,NaN,0.4,Infinity],"CLs_obs":NaN}`+"\n", string(data))

	out, err := Load(mfs, "r.json")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out.CLsObs))
	assert.True(t, math.IsInf(out.CLsExp[Plus2Sigma], 1))
}

func TestQuoteNonFinite(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`[NaN, 1, -Infinity]`, `["NaN", 1, "-Infinity"]`},
		{`{"note": "NaN stays", "v": Infinity}`, `{"note": "NaN stays", "v": "Infinity"}`},
		{`{"esc": "a\"NaN", "v": 0.5}`, `{"esc": "a\"NaN", "v": 0.5}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(QuoteNonFinite([]byte(tt.in))))
	}
}

func TestUnquoteNonFinite(t *testing.T) {
	in := `{"NaN": "NaN", "v": ["Infinity", "text"]}`
	assert.Equal(t, `{"NaN": NaN, "v": [Infinity, "text"]}`, string(UnquoteNonFinite([]byte(in))))
}

func TestNumberRejectsOtherStrings(t *testing.T) {
	var n Number
	assert.Error(t, json.Unmarshal([]byte(`"0.5"`), &n))
	require.NoError(t, json.Unmarshal([]byte(`0.5`), &n))
	assert.Equal(t, Number(0.5), n)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrEmptyFile},
		{"whitespace", "  \n", ErrEmptyFile},
		{"not json", "CLs=0.1", ErrMalformed},
		{"missing observed", `{"CLs_exp": [1,2,3,4,5]}`, ErrMalformed},
		{"missing expected", `{"CLs_obs": 0.5}`, ErrMalformed},
		{"short band", `{"CLs_obs": 0.5, "CLs_exp": [1,2,3]}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	in := Result{CLsExp: []float64{0.1, 0.2, 0.3, 0.4, 0.5}, CLsObs: 0.25}

	require.NoError(t, Save(mfs, "results/1Lbb_700p0_150p0.json", in))

	data, err := mfs.ReadFile("results/1Lbb_700p0_150p0.json")
	require.NoError(t, err)
	assert.Equal(t, `{"CLs_exp":[0.1,0.2,0.3,0.4,0.5],"CLs_obs":0.25}`+"\n", string(data))

	out, err := Load(mfs, "results/1Lbb_700p0_150p0.json")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSaveRejectsBadBand(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	err := Save(mfs, "r.json", Result{CLsExp: []float64{0.1}, CLsObs: 0.2})
	assert.ErrorIs(t, err, ErrMalformed)
	assert.False(t, mfs.Exists("r.json"))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(fsutil.NewMemoryFileSystem(), "nope.json")
	assert.Error(t, err)
}
