// Package schema defines the canonical Stage 1 and Stage 2 shapes and the
// total normalizers that reconcile arbitrary model output into them.
package schema

import (
	"slices"
	"strings"
)

// ImageType describes how the trap captured the frame
type ImageType string

const (
	ImageDaylight ImageType = "daylight"
	ImageInfrared ImageType = "infrared"
	ImageFlash    ImageType = "flash"
	ImageDuskDawn ImageType = "dusk_dawn"
)

// ImageQuality is the coarse quality grade from Stage 1
type ImageQuality string

const (
	QualityGood     ImageQuality = "good"
	QualityModerate ImageQuality = "moderate"
	QualityPoor     ImageQuality = "poor"
)

// Size is the apparent size class of the animal
type Size string

const (
	SizeSmall   Size = "small"
	SizeMedium  Size = "medium"
	SizeLarge   Size = "large"
	SizeUnknown Size = "unknown"
)

// Pattern is the dominant coat pattern
type Pattern string

const (
	PatternSpots   Pattern = "spots"
	PatternStripes Pattern = "stripes"
	PatternSolid   Pattern = "solid"
	PatternUnclear Pattern = "unclear"
	PatternNone    Pattern = "none"
)

// TimeOfDay is read from the trap overlay or inferred from lighting
type TimeOfDay string

const (
	TimeDay     TimeOfDay = "day"
	TimeNight   TimeOfDay = "night"
	TimeDawn    TimeOfDay = "dawn"
	TimeDusk    TimeOfDay = "dusk"
	TimeUnknown TimeOfDay = "unknown"
)

// VisibleFeatures lists what Stage 1 could see of the animal
type VisibleFeatures struct {
	BodyVisible     bool    `json:"body_visible"`
	FaceVisible     bool    `json:"face_visible"`
	EyeShine        bool    `json:"eye_shine"`
	ApproximateSize Size    `json:"approximate_size"`
	Pattern         Pattern `json:"pattern"`
	// BodyPercentageVisible is nil when unknown, otherwise within [0,100]
	BodyPercentageVisible *int `json:"body_percentage_visible"`
}

// StageOne is the image-quality and animal-presence assessment.
// ProceedToIdentification implies AnimalPresent.
type StageOne struct {
	AnimalPresent           bool            `json:"animal_present"`
	AnimalCount             int             `json:"animal_count"`
	ImageType               ImageType       `json:"image_type"`
	ImageQuality            ImageQuality    `json:"image_quality"`
	VisibleFeatures         VisibleFeatures `json:"visible_features"`
	ProceedToIdentification bool            `json:"proceed_to_identification"`
	Confidence              float64         `json:"stage1_confidence"`
	RejectionReason         string          `json:"rejection_reason"`
	TimeOfDay               TimeOfDay       `json:"time_of_day"`
	DateTime                *string         `json:"date_time"`
}

// Alternative is a runner-up species candidate
type Alternative struct {
	SpeciesID  string  `json:"species_id"`
	CommonName string  `json:"common_name,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Animal is one detected species group in a multi-animal frame
type Animal struct {
	SpeciesID      string  `json:"species_id"`
	CommonName     string  `json:"common_name,omitempty"`
	ScientificName string  `json:"scientific_name,omitempty"`
	Quantity       int     `json:"quantity"`
	Confidence     float64 `json:"confidence"`
}

// StageTwo is the species identification.
// Alternatives are sorted by descending confidence.
type StageTwo struct {
	SpeciesID           *string       `json:"species_id"`
	CommonName          string        `json:"common_name,omitempty"`
	ScientificName      string        `json:"scientific_name,omitempty"`
	Confidence          float64       `json:"confidence"`
	Reasoning           string        `json:"reasoning"`
	IdentifyingFeatures []string      `json:"identifying_features"`
	Alternatives        []Alternative `json:"alternative_species"`
	NeedsReview         bool          `json:"needs_review"`
	ReviewReason        *string       `json:"review_reason"`
	Count               int           `json:"count"`
	Animals             []Animal      `json:"animals"`
}

// Species returns the species token, or "" when none was proposed
func (s StageTwo) Species() string {
	if s.SpeciesID == nil {
		return ""
	}
	return *s.SpeciesID
}

// FlagReview sets NeedsReview and appends reason to any existing reason
func (s *StageTwo) FlagReview(reason string) {
	s.NeedsReview = true
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	if s.ReviewReason == nil || *s.ReviewReason == "" {
		s.ReviewReason = &reason
		return
	}
	joined := *s.ReviewReason + "; " + reason
	s.ReviewReason = &joined
}

// TopAlternative returns the highest-confidence alternative, if any
func (s StageTwo) TopAlternative() (Alternative, bool) {
	if len(s.Alternatives) == 0 {
		return Alternative{}, false
	}
	return s.Alternatives[0], true
}

// Clone returns a deep copy so pipeline steps never share slices or pointers
func (s StageTwo) Clone() StageTwo {
	out := s
	if s.SpeciesID != nil {
		id := *s.SpeciesID
		out.SpeciesID = &id
	}
	if s.ReviewReason != nil {
		r := *s.ReviewReason
		out.ReviewReason = &r
	}
	out.IdentifyingFeatures = slices.Clone(s.IdentifyingFeatures)
	out.Alternatives = slices.Clone(s.Alternatives)
	out.Animals = slices.Clone(s.Animals)
	return out
}

// StringPtr is a small helper for optional string fields
func StringPtr(s string) *string {
	return &s
}
