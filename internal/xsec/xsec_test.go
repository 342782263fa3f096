package xsec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitgrid/fitgrid/internal/fsutil"
	"github.com/fitgrid/fitgrid/internal/monitoring"
)

const table = "dataset_number/I:physics_short/C:crossSection/D:genFiltEff/D:kFactor/D:relUncertUP/D:relUncertDOWN/D:generator_name/C:etag/C\n" +
	"396210\t\tMGPy8EG_A14N23LO_C1N2_Wh_hbb_700p0_150p0_lep\t\t0.0058\t\t0.25\t\t1.0\t\t0.08\t\t0.08\t\tMadGraph+Pythia8\t\te6875\n" +
	"396210\t\tMGPy8EG_A14N23LO_C1N2_Wh_hbb_700p0_150p0_lep\t\t0.0061\t\t0.25\t\t1.0\t\t0.08\t\t0.08\t\tMadGraph+Pythia8\t\te7000\n" +
	"\n" +
	"364100\t\tSh_221_NNPDF30NNLO_Zmumu_MAXHTPTV0_70\t\t1983.0\t\t0.82\t\t0.9751\t\t0.0\t\t0.0\t\tSherpa\t\te5271\n"

func loadTable(t *testing.T) *DB {
	t.Helper()
	db, err := Parse([]byte(table))
	require.NoError(t, err)
	return db
}

func TestParse(t *testing.T) {
	db := loadTable(t)
	assert.Equal(t, 3, db.Len())

	e, err := db.Lookup(364100, "")
	require.NoError(t, err)
	assert.Equal(t, "Sh_221_NNPDF30NNLO_Zmumu_MAXHTPTV0_70", e.PhysicsShort)
	assert.Equal(t, 1983.0, e.CrossSection)
	assert.Equal(t, 0.9751, e.KFactor)
	assert.Equal(t, "Sherpa", e.Generator)
	assert.Equal(t, "e5271", e.ETag)
}

func TestDuplicateFirstWins(t *testing.T) {
	rec, restore := monitoring.Capture()
	defer restore()
	db := loadTable(t)

	x, err := db.Xsec(396210, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0058, x)
	assert.True(t, rec.Contains("more than one row with DSID 396210"))
}

func TestLookupByETag(t *testing.T) {
	rec, restore := monitoring.Capture()
	defer restore()
	db := loadTable(t)

	x, err := db.Xsec(396210, "e7000")
	require.NoError(t, err)
	assert.Equal(t, 0.0061, x)
	assert.Empty(t, rec.Lines())

	_, err = db.Xsec(396210, "e1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProducts(t *testing.T) {
	db := loadTable(t)

	v, err := db.XsecTimesEff(364100, "")
	require.NoError(t, err)
	assert.InDelta(t, 1983.0*0.82, v, 1e-9)

	v, err = db.XsecTimesEffTimesKFactor(364100, "")
	require.NoError(t, err)
	assert.InDelta(t, 1983.0*0.82*0.9751, v, 1e-9)

	eff, err := db.Efficiency(364100, "")
	require.NoError(t, err)
	assert.Equal(t, 0.82, eff)
}

func TestUnknownDSID(t *testing.T) {
	db := loadTable(t)
	_, err := db.XsecTimesEff(123456, "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"short row", "header\n396210\t\tfoo\t\t1.0\n"},
		{"bad dsid", "header\nabc\tp\t1\t1\t1\t0\t0\tg\te1\n"},
		{"bad number", "header\n396210\tp\tx\t1\t1\t0\t0\tg\te1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/db/PMGxsecDB_mc16.txt", []byte(table), 0o644))

	db, err := Load(fsys, "/db/PMGxsecDB_mc16.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, db.Len())

	_, err = Load(fsys, "/db/missing.txt")
	assert.Error(t, err)
}
