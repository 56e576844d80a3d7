package envelope

import "strconv"

// Warning is a non-fatal, user-visible annotation attached to an otherwise
// successful tool response, per spec.md §7.
type Warning struct {
	Code   string
	Detail string
}

// The five warning codes spec.md §7 names. Codes beyond these may still be
// emitted by individual components. The envelope's helpers build the first
// two (stale formulas, low-confidence region); the other three are only
// declared here.
const (
	WarnStaleFormulas              = "WARN_STALE_FORMULAS"
	WarnRegionLowConfidence        = "WARN_REGION_LOW_CONFIDENCE"
	WarnFreezePanesTopLeftDefault  = "WARN_FREEZE_PANES_TOPLEFT_DEFAULTED"
	WarnValidationFormulaNotParsed = "WARN_VALIDATION_FORMULA_NOT_PARSED"
	WarnCFFormulaNotAdjusted       = "WARN_CF_FORMULA_NOT_ADJUSTED_ON_STRUCTURE"
)

func staleFormulasWarning() Warning {
	return Warning{Code: WarnStaleFormulas, Detail: "fork has pending edits that have not been recalculated"}
}

func regionLowConfidenceWarning(regionID uint32, confidence float64) Warning {
	return Warning{
		Code:   WarnRegionLowConfidence,
		Detail: fmtConfidence(regionID, confidence),
	}
}

func fmtConfidence(regionID uint32, confidence float64) string {
	return "region " + strconv.FormatUint(uint64(regionID), 10) +
		": confidence below the header-quality threshold (" + strconv.FormatFloat(confidence, 'f', 2, 64) + ")"
}
