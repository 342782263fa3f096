package yields

import (
	"path/filepath"
	"strings"

	"github.com/fitgrid/fitgrid/internal/analysis"
)

var commonReplacements = []string{
	"_YieldsTable", "",
	"excl_", "",
	"bkgOnly_", "",
	"free_", "",
}

var compressedReplacements = []string{
	"diboson_fakes_other_Zttjets_top_inRegions_", "",
	"MGPy8EG_A14N23LO_C1N2_WZ_175p0_135p0_2L2MET75_MadSpin_", "",
	"MGPy8EG_A14N23LO_C1N2_WZ_225p0_215p0_2L2MET75_MadSpin_", "",
	"_cuts", "",
	"hghmet", "high",
	"lowmet_deltaM_low", "medium",
	"lowmet_deltaM_high", "low",
}

// RegionName derives the region of a yield table from its file name. The
// fit config is removed so the three fits of a region share one name. The
// compressed analysis additionally maps its regions to publication names,
// e.g. "SRee_eMLLa_hghmet" becomes "SR-E-high-ee-bin-a".
func RegionName(path string, g analysis.Group) string {
	name := strings.TrimSuffix(filepath.Base(path), ".tex")
	if g == analysis.Compressed {
		// Sample prefixes must go before the fit config is cut out of them.
		name = applyPairs(name, compressedReplacements[:6])
	}
	name = applyPairs(name, commonReplacements)
	if g != analysis.Compressed {
		return name
	}
	name = applyPairs(name, compressedReplacements[6:])

	if strings.HasPrefix(name, "SR") {
		switch {
		case strings.HasPrefix(name, "SRee"):
			name = strings.Replace(name, "SRee_", "SR_", 1) + "_ee"
		case strings.HasPrefix(name, "SRmm"):
			name = strings.Replace(name, "SRmm_", "SR_", 1) + "_mm"
		}
		if parts := strings.Split(name, "_"); len(parts) > 1 {
			bin := parts[1]
			name = strings.ReplaceAll(name, bin+"_", "E_") + strings.ReplaceAll(bin, "eMLL", "_bin_")
		}
	}
	return strings.ReplaceAll(name, "_", "-")
}

func applyPairs(s string, pairs []string) string {
	for i := 0; i+1 < len(pairs); i += 2 {
		s = strings.ReplaceAll(s, pairs[i], pairs[i+1])
	}
	return s
}
