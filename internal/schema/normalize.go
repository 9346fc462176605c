package schema

import (
	"cmp"
	"slices"
	"strings"

	"github.com/antonholmquist/jason"
)

var imageTypeSynonyms = map[string]ImageType{
	"daylight":     ImageDaylight,
	"day":          ImageDaylight,
	"infrared":     ImageInfrared,
	"ir":           ImageInfrared,
	"night_vision": ImageInfrared,
	"nightvision":  ImageInfrared,
	"flash":        ImageFlash,
	"dusk_dawn":    ImageDuskDawn,
	"dawn_dusk":    ImageDuskDawn,
	"dawn":         ImageDuskDawn,
	"dusk":         ImageDuskDawn,
	"twilight":     ImageDuskDawn,
}

var timeOfDaySynonyms = map[string]TimeOfDay{
	"day":       TimeDay,
	"daytime":   TimeDay,
	"daylight":  TimeDay,
	"night":     TimeNight,
	"nighttime": TimeNight,
	"dawn":      TimeDawn,
	"sunrise":   TimeDawn,
	"dusk":      TimeDusk,
	"sunset":    TimeDusk,
	"unknown":   TimeUnknown,
}

func normalizeImageType(raw any) ImageType {
	if t, ok := imageTypeSynonyms[enumToken(raw)]; ok {
		return t
	}
	return ImageDaylight
}

func normalizeQuality(raw any) ImageQuality {
	switch q := ImageQuality(enumToken(raw)); q {
	case QualityGood, QualityModerate, QualityPoor:
		return q
	case "medium", "fair", "average":
		return QualityModerate
	case "high", "excellent":
		return QualityGood
	}
	return QualityPoor
}

func normalizeSize(raw any) Size {
	switch s := Size(enumToken(raw)); s {
	case SizeSmall, SizeMedium, SizeLarge:
		return s
	}
	return SizeUnknown
}

func normalizePattern(raw any) Pattern {
	switch p := Pattern(enumToken(raw)); p {
	case PatternSpots, PatternStripes, PatternSolid, PatternNone:
		return p
	case "spotted", "rosettes":
		return PatternSpots
	case "striped":
		return PatternStripes
	case "plain", "uniform":
		return PatternSolid
	}
	return PatternUnclear
}

func normalizeTimeOfDay(raw any) TimeOfDay {
	if t, ok := timeOfDaySynonyms[enumToken(raw)]; ok {
		return t
	}
	return TimeUnknown
}

// bodyPercentage returns nil for absent or "unknown" values
func bodyPercentage(raw any) *int {
	if raw == nil || enumToken(raw) == "unknown" {
		return nil
	}
	f, ok := toFloat(raw)
	if !ok {
		return nil
	}
	pct := int(clamp(f, 0, 100) + 0.5)
	return &pct
}

// NormalizeStage1 reconciles a Stage 1 response into StageOne. It never
// fails: missing or malformed fields take their defaults.
func NormalizeStage1(obj *jason.Object) StageOne {
	out := StageOne{
		AnimalPresent:           boolField(obj, false, "animal_present", "animalPresent"),
		ImageType:               normalizeImageType(field(obj, "image_type", "imageType")),
		ImageQuality:            normalizeQuality(field(obj, "image_quality", "imageQuality", "quality")),
		ProceedToIdentification: boolField(obj, false, "proceed_to_identification", "proceed"),
		Confidence:              confidence(field(obj, "stage1_confidence", "confidence")),
		RejectionReason:         toString(field(obj, "rejection_reason", "rejectionReason")),
		TimeOfDay:               normalizeTimeOfDay(field(obj, "time_of_day", "timeOfDay")),
	}

	if dt := toString(field(obj, "date_time", "dateTime", "timestamp")); dt != "" && !strings.EqualFold(dt, "unknown") {
		out.DateTime = &dt
	}

	features := subObject(obj, "visible_features", "visibleFeatures")
	out.VisibleFeatures = VisibleFeatures{
		BodyVisible:           boolField(features, false, "body_visible"),
		FaceVisible:           boolField(features, false, "face_visible"),
		EyeShine:              boolField(features, false, "eye_shine"),
		ApproximateSize:       normalizeSize(field(features, "approximate_size", "size")),
		Pattern:               normalizePattern(field(features, "pattern")),
		BodyPercentageVisible: bodyPercentage(field(features, "body_percentage_visible", "body_percentage")),
	}

	count, _ := toInt(field(obj, "animal_count", "animalCount", "count"))
	switch {
	case !out.AnimalPresent:
		count = 0
	case count < 1:
		count = 1
	}
	out.AnimalCount = count

	if out.ProceedToIdentification && !out.AnimalPresent {
		out.ProceedToIdentification = false
	}
	return out
}

// NormalizeStage2 reconciles a Stage 2 response into StageTwo. Like
// NormalizeStage1 it is total.
func NormalizeStage2(obj *jason.Object) StageTwo {
	out := StageTwo{
		CommonName:          toString(field(obj, "common_name", "commonName")),
		ScientificName:      toString(field(obj, "scientific_name", "scientificName")),
		Confidence:          confidence(field(obj, "confidence", "score", "probability")),
		Reasoning:           toString(field(obj, "reasoning", "explanation")),
		IdentifyingFeatures: stringList(field(obj, "identifying_features", "features")),
		Alternatives:        parseAlternatives(field(obj, "alternative_species", "alternatives")),
		NeedsReview:         boolField(obj, false, "needs_review", "needsReview"),
		Animals:             parseAnimals(field(obj, "animals")),
	}

	if id := toString(field(obj, "species_id", "species", "speciesId", "id")); id != "" {
		out.SpeciesID = &id
	}
	if reason := toString(field(obj, "review_reason", "reviewReason")); reason != "" {
		out.ReviewReason = &reason
	}

	count, _ := toInt(field(obj, "count", "quantity", "qty", "q"))

	if out.SpeciesID == nil && len(out.Animals) > 0 {
		top := out.Animals[0]
		for _, a := range out.Animals[1:] {
			if a.Confidence > top.Confidence {
				top = a
			}
		}
		id := top.SpeciesID
		out.SpeciesID = &id
		out.Confidence = top.Confidence
		if out.CommonName == "" {
			out.CommonName = top.CommonName
		}
		count = 0
		for _, a := range out.Animals {
			count += a.Quantity
		}
	}

	out.Count = max(count, 1)
	return out
}

func parseAlternatives(raw any) []Alternative {
	out := []Alternative{}
	items, ok := raw.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		var alt Alternative
		switch v := item.(type) {
		case string:
			alt.SpeciesID = strings.TrimSpace(v)
		case map[string]any:
			alt.SpeciesID = toString(mapValue(v, "species_id", "species", "id"))
			alt.CommonName = toString(mapValue(v, "common_name", "name"))
			alt.Confidence = confidence(mapValue(v, "confidence", "score"))
		}
		if alt.SpeciesID == "" {
			continue
		}
		out = append(out, alt)
	}
	slices.SortStableFunc(out, func(a, b Alternative) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	return out
}

// parseAnimals accepts, in priority order, an array of objects, an array of
// [species, quantity?, confidence?] tuples, or a {species: quantity} map.
func parseAnimals(raw any) []Animal {
	out := []Animal{}
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			var (
				a  Animal
				ok bool
			)
			switch entry := item.(type) {
			case map[string]any:
				a, ok = animalFromObject(entry)
			case []any:
				a, ok = animalFromTuple(entry)
			case string:
				a, ok = Animal{SpeciesID: strings.TrimSpace(entry), Quantity: 1}, strings.TrimSpace(entry) != ""
			}
			if ok {
				out = append(out, a)
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			species := strings.TrimSpace(k)
			if species == "" {
				continue
			}
			out = append(out, Animal{SpeciesID: species, Quantity: quantity(v[k])})
		}
	}
	return out
}

func animalFromObject(m map[string]any) (Animal, bool) {
	a := Animal{
		SpeciesID:      toString(mapValue(m, "species_id", "species", "id")),
		CommonName:     toString(mapValue(m, "common_name", "name")),
		ScientificName: toString(mapValue(m, "scientific_name")),
		Quantity:       quantity(mapValue(m, "quantity", "qty", "q", "count")),
		Confidence:     confidence(mapValue(m, "confidence", "score")),
	}
	return a, a.SpeciesID != ""
}

func animalFromTuple(t []any) (Animal, bool) {
	if len(t) == 0 {
		return Animal{}, false
	}
	a := Animal{SpeciesID: toString(t[0]), Quantity: 1}
	if len(t) > 1 {
		a.Quantity = quantity(t[1])
	}
	if len(t) > 2 {
		a.Confidence = confidence(t[2])
	}
	return a, a.SpeciesID != ""
}

// quantity is at least 1 for any listed animal
func quantity(raw any) int {
	n, ok := toInt(raw)
	if !ok || n < 1 {
		return 1
	}
	return n
}
