package calibrate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/schema"
)

func stage1(imageType schema.ImageType, body, face, eyeShine bool) schema.StageOne {
	return schema.StageOne{
		AnimalPresent:           true,
		AnimalCount:             1,
		ImageType:               imageType,
		ProceedToIdentification: true,
		VisibleFeatures: schema.VisibleFeatures{
			BodyVisible: body,
			FaceVisible: face,
			EyeShine:    eyeShine,
		},
	}
}

func stage2(conf float64, alts ...schema.Alternative) schema.StageTwo {
	return schema.StageTwo{
		SpeciesID:    schema.StringPtr("leopard"),
		Confidence:   conf,
		Alternatives: alts,
		Count:        1,
	}
}

func TestApplyRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		s1         schema.StageOne
		conf       float64
		want       float64
		wantReview bool
	}{
		{"daylight untouched", stage1(schema.ImageDaylight, true, true, false), 0.9, 0.9, false},
		{"infrared penalty", stage1(schema.ImageInfrared, true, true, true), 0.9, 0.75, false},
		{"infrared floors at zero", stage1(schema.ImageInfrared, true, true, false), 0.1, 0, true},
		{"flash eye shine only", stage1(schema.ImageFlash, false, false, true), 0.95, 0.55, true},
		{"flash with body keeps face cap", stage1(schema.ImageFlash, true, false, true), 0.95, 0.60, true},
		{"occluded face at dusk", stage1(schema.ImageDuskDawn, true, false, false), 0.8, 0.60, true},
		{"occluded face in daylight", stage1(schema.ImageDaylight, true, false, false), 0.8, 0.8, false},
		{"infrared then occluded cap", stage1(schema.ImageInfrared, true, false, false), 0.99, 0.60, true},
		{"below threshold", stage1(schema.ImageDaylight, true, true, false), 0.5, 0.5, true},
	}

	c := New(DefaultPolicy())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := c.Apply(stage2(tt.conf), tt.s1)
			assert.InDelta(t, tt.want, out.Confidence, 1e-9)
			assert.Equal(t, tt.wantReview, out.NeedsReview)
		})
	}
}

func TestApplyInfraredNightScenario(t *testing.T) {
	t.Parallel()

	out := New(DefaultPolicy()).Apply(stage2(0.9), stage1(schema.ImageInfrared, true, true, true))
	assert.InDelta(t, 0.75, out.Confidence, 1e-9)
	assert.False(t, out.NeedsReview)
	assert.Nil(t, out.ReviewReason)
}

func TestApplyThresholdReason(t *testing.T) {
	t.Parallel()

	out := New(DefaultPolicy()).Apply(stage2(0.5), stage1(schema.ImageDaylight, true, true, false))
	require.NotNil(t, out.ReviewReason)
	assert.Equal(t, "confidence 0.50 below review threshold 0.65", *out.ReviewReason)
}

func TestApplyKeepsExistingReviewReason(t *testing.T) {
	t.Parallel()

	in := stage2(0.4)
	in.FlagReview("partial view")
	out := New(DefaultPolicy()).Apply(in, stage1(schema.ImageDaylight, true, true, false))
	require.NotNil(t, out.ReviewReason)
	assert.Equal(t, "partial view", *out.ReviewReason)
}

func TestApplyCloseAlternative(t *testing.T) {
	t.Parallel()

	c := New(DefaultPolicy())
	s1 := stage1(schema.ImageDaylight, true, true, false)

	out := c.Apply(stage2(0.95, schema.Alternative{SpeciesID: "cheetah", Confidence: 0.85}), s1)
	assert.True(t, out.NeedsReview)
	require.NotNil(t, out.ReviewReason)
	assert.Equal(t, `close alternative "cheetah" (0.95 vs 0.85)`, *out.ReviewReason)

	// exactly at the margin still counts as close
	out = c.Apply(stage2(0.95, schema.Alternative{SpeciesID: "cheetah", Confidence: 0.80}), s1)
	assert.True(t, out.NeedsReview)

	out = c.Apply(stage2(0.95, schema.Alternative{SpeciesID: "cheetah", Confidence: 0.5}), s1)
	assert.False(t, out.NeedsReview)
}

func TestApplyNeverIncreasesAndStaysInRange(t *testing.T) {
	t.Parallel()

	c := New(DefaultPolicy())
	types := []schema.ImageType{schema.ImageDaylight, schema.ImageInfrared, schema.ImageFlash, schema.ImageDuskDawn}
	for _, it := range types {
		for mask := range 8 {
			s1 := stage1(it, mask&1 != 0, mask&2 != 0, mask&4 != 0)
			for i := 0; i <= 20; i++ {
				conf := float64(i) / 20
				out := c.Apply(stage2(conf), s1)
				assert.LessOrEqual(t, out.Confidence, conf+1e-12)
				assert.GreaterOrEqual(t, out.Confidence, 0.0)
				assert.LessOrEqual(t, out.Confidence, 1.0)
			}
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := stage2(0.3, schema.Alternative{SpeciesID: "cheetah", Confidence: 0.25})
	_ = New(DefaultPolicy()).Apply(in, stage1(schema.ImageInfrared, true, true, false))
	assert.InDelta(t, 0.3, in.Confidence, 1e-9)
	assert.False(t, in.NeedsReview)
	assert.Nil(t, in.ReviewReason)
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.ReviewThreshold = 1.5
	p.InfraredPenalty = math.NaN()
	err := p.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
	assert.Contains(t, err.Error(), "calibration.reviewthreshold")
	assert.Contains(t, err.Error(), "calibration.infraredpenalty")
}
