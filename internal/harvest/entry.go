package harvest

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/fitgrid/fitgrid/internal/fitresult"
	"github.com/fitgrid/fitgrid/internal/masspoint"
)

// Placeholder values for fields the pipeline does not compute. Contour
// tooling downstream expects every key to be present.
const (
	Unset        = -1
	NoXsec       = -999007
	CovQualityOK = 3
)

// Float is a float64 that always encodes with a decimal point or exponent,
// so masses read back as floating point by downstream tooling.
type Float float64

// MarshalJSON encodes integral values as "700.0" rather than "700". NaN and
// ±Infinity are written quoted; Encode strips the quotes.
func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return fitresult.Number(f).MarshalJSON()
	}
	b, err := json.Marshal(float64(f))
	if err != nil {
		return nil, err
	}
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, ".0"...)
	}
	return b, nil
}

// UnmarshalJSON accepts numbers and the quoted non-finite values.
func (f *Float) UnmarshalJSON(b []byte) error {
	var n fitresult.Number
	if err := n.UnmarshalJSON(b); err != nil {
		return err
	}
	*f = Float(n)
	return nil
}

// Entry is one mass point of a harvest. Fields are declared in sorted key
// order so the encoded document has sorted keys.
type Entry struct {
	CLs                         Float `json:"CLs"`
	CLsExp                      Float `json:"CLsexp"`
	ClsD1s                      Float `json:"clsd1s"`
	ClsD2s                      Float `json:"clsd2s"`
	ClsU1s                      Float `json:"clsu1s"`
	ClsU2s                      Float `json:"clsu2s"`
	CovQual                     int   `json:"covqual"`
	DM                          Float `json:"dm"`
	DodgyCov                    int   `json:"dodgycov"`
	ExcludedXsec                int   `json:"excludedXsec"`
	ExpectedUpperLimit          int   `json:"expectedUpperLimit"`
	ExpectedUpperLimitMinus1Sig int   `json:"expectedUpperLimitMinus1Sig"`
	ExpectedUpperLimitMinus2Sig int   `json:"expectedUpperLimitMinus2Sig"`
	ExpectedUpperLimitPlus1Sig  int   `json:"expectedUpperLimitPlus1Sig"`
	ExpectedUpperLimitPlus2Sig  int   `json:"expectedUpperLimitPlus2Sig"`
	FID                         int   `json:"fID"`
	FailedCov                   int   `json:"failedcov"`
	FailedFit                   int   `json:"failedfit"`
	FailedP0                    int   `json:"failedp0"`
	FailedStatus                int   `json:"failedstatus"`
	FitStatus                   int   `json:"fitstatus"`
	Mode                        int   `json:"mode"`
	NExp                        int   `json:"nexp"`
	NoFit                       int   `json:"nofit"`
	P0                          int   `json:"p0"`
	P0D1s                       int   `json:"p0d1s"`
	P0D2s                       int   `json:"p0d2s"`
	P0Exp                       int   `json:"p0exp"`
	P0U1s                       int   `json:"p0u1s"`
	P0U2s                       int   `json:"p0u2s"`
	P1                          int   `json:"p1"`
	Seed                        int   `json:"seed"`
	Sigma0                      int   `json:"sigma0"`
	Sigma1                      int   `json:"sigma1"`
	UpperLimit                  int   `json:"upperLimit"`
	UpperLimitEstimatedError    int   `json:"upperLimitEstimatedError"`
	X                           Float `json:"x"`
	Xsec                        int   `json:"xsec"`
	Y                           Float `json:"y"`
}

// NewEntry builds the harvest entry for one fitted point.
func NewEntry(p masspoint.Point, r fitresult.Result) Entry {
	return Entry{
		CLs:    Float(r.CLsObs),
		CLsExp: Float(r.CLsExp[fitresult.Median]),
		ClsD1s: Float(r.CLsExp[fitresult.Minus1Sigma]),
		ClsD2s: Float(r.CLsExp[fitresult.Minus2Sigma]),
		ClsU1s: Float(r.CLsExp[fitresult.Plus1Sigma]),
		ClsU2s: Float(r.CLsExp[fitresult.Plus2Sigma]),

		X:  Float(p.M1),
		Y:  Float(p.M2),
		DM: Float(p.DeltaM()),

		CovQual:      CovQualityOK,
		ExcludedXsec: NoXsec,
		Xsec:         NoXsec,

		ExpectedUpperLimit:          Unset,
		ExpectedUpperLimitMinus1Sig: Unset,
		ExpectedUpperLimitMinus2Sig: Unset,
		ExpectedUpperLimitPlus1Sig:  Unset,
		ExpectedUpperLimitPlus2Sig:  Unset,
		FID:                         Unset,
		Mode:                        Unset,
		NExp:                        Unset,
		P0D1s:                       Unset,
		P0D2s:                       Unset,
		P0Exp:                       Unset,
		P0U1s:                       Unset,
		P0U2s:                       Unset,
		Sigma0:                      Unset,
		Sigma1:                      Unset,
		UpperLimit:                  Unset,
		UpperLimitEstimatedError:    Unset,
	}
}

// Point returns the mass point the entry describes.
func (e Entry) Point() masspoint.Point {
	return masspoint.Point{M1: float64(e.X), M2: float64(e.Y)}
}
