// Package calibrate adjusts Stage 2 confidence for capture conditions and
// decides when a result needs human review.
package calibrate

import (
	"fmt"
	"math"

	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/schema"
)

// Policy holds the calibration constants. Every field must lie in [0,1].
type Policy struct {
	InfraredPenalty  float64 `mapstructure:"infraredpenalty" yaml:"infraredpenalty"`
	FlashEyeShineCap float64 `mapstructure:"flasheyeshinecap" yaml:"flasheyeshinecap"`
	OccludedFaceCap  float64 `mapstructure:"occludedfacecap" yaml:"occludedfacecap"`
	ReviewThreshold  float64 `mapstructure:"reviewthreshold" yaml:"reviewthreshold"`
	AmbiguityMargin  float64 `mapstructure:"ambiguitymargin" yaml:"ambiguitymargin"`
}

// DefaultPolicy returns the production constants
func DefaultPolicy() Policy {
	return Policy{
		InfraredPenalty:  0.15,
		FlashEyeShineCap: 0.55,
		OccludedFaceCap:  0.60,
		ReviewThreshold:  0.65,
		AmbiguityMargin:  0.15,
	}
}

// Validate reports every constant outside [0,1]
func (p Policy) Validate() error {
	var errs []error
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"infraredpenalty", p.InfraredPenalty},
		{"flasheyeshinecap", p.FlashEyeShineCap},
		{"occludedfacecap", p.OccludedFaceCap},
		{"reviewthreshold", p.ReviewThreshold},
		{"ambiguitymargin", p.AmbiguityMargin},
	} {
		if math.IsNaN(f.v) || f.v < 0 || f.v > 1 {
			errs = append(errs, errors.Newf("calibration.%s must be within [0,1], got %v", f.name, f.v).
				Component("calibrate").
				Category(errors.CategoryConfiguration).
				Build())
		}
	}
	return errors.Join(errs...)
}

// Calibrator applies a Policy
type Calibrator struct {
	Policy Policy
}

// New returns a Calibrator for policy
func New(policy Policy) *Calibrator {
	return &Calibrator{Policy: policy}
}

// Apply returns a calibrated copy of s2. Confidence never increases and always
// ends within [0,1].
func (c *Calibrator) Apply(s2 schema.StageTwo, s1 schema.StageOne) schema.StageTwo {
	out := s2.Clone()
	p := c.Policy
	conf := out.Confidence
	vf := s1.VisibleFeatures

	if s1.ImageType == schema.ImageInfrared {
		conf -= p.InfraredPenalty
	}
	if s1.ImageType == schema.ImageFlash && vf.EyeShine && !vf.BodyVisible {
		conf = math.Min(conf, p.FlashEyeShineCap)
	}
	if !vf.FaceVisible && vf.BodyVisible && s1.ImageType != schema.ImageDaylight {
		conf = math.Min(conf, p.OccludedFaceCap)
	}
	conf = math.Max(0, math.Min(1, conf))
	out.Confidence = conf

	if conf < p.ReviewThreshold && !out.NeedsReview {
		out.FlagReview(fmt.Sprintf("confidence %.2f below review threshold %.2f", conf, p.ReviewThreshold))
	}

	if alt, ok := out.TopAlternative(); ok && conf-alt.Confidence <= p.AmbiguityMargin+epsilon {
		out.FlagReview(fmt.Sprintf("close alternative %q (%.2f vs %.2f)", alt.SpeciesID, conf, alt.Confidence))
	}

	return out
}

// epsilon absorbs float error so 0.95 - 0.80 counts as within a 0.15 margin
const epsilon = 1e-9
