// internal/api/v1/identify.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/pipeline"
	"github.com/tphakala/trapcam/internal/schema"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

// IdentifyRequest is the body of POST /identify
type IdentifyRequest struct {
	Image   string `json:"image"`
	Station string `json:"station,omitempty"`
}

// AlternativeResponse is one runner-up candidate
type AlternativeResponse struct {
	SpeciesID  string  `json:"species_id"`
	CommonName string  `json:"common_name"`
	Confidence float64 `json:"confidence"`
}

// IdentifyResponse is the success envelope. Species is null for early exits
// and for tokens that did not resolve; the raw token is then in SpeciesToken.
type IdentifyResponse struct {
	Success             bool                  `json:"success"`
	Stage1              schema.StageOne       `json:"stage1"`
	Species             *string               `json:"species"`
	SpeciesToken        string                `json:"species_token,omitempty"`
	CommonName          *string               `json:"common_name"`
	ScientificName      *string               `json:"scientific_name"`
	Confidence          float64               `json:"confidence"`
	Reasoning           string                `json:"reasoning"`
	Alternatives        []AlternativeResponse `json:"alternatives"`
	NeedsReview         bool                  `json:"needs_review"`
	ReviewReason        *string               `json:"review_reason"`
	Animals             []schema.Animal       `json:"animals"`
	Count               int                   `json:"count"`
	IdentifyingFeatures []string              `json:"identifying_features"`
	Station             *taxonomy.Station     `json:"station,omitempty"`
	Outcome             pipeline.Outcome      `json:"outcome"`
	Cached              bool                  `json:"cached"`
	Model               string                `json:"model"`
	DurationMs          int64                 `json:"duration_ms"`
}

// NewIdentifyResponse renders a pipeline result as the wire envelope
func NewIdentifyResponse(res *pipeline.Result) *IdentifyResponse {
	resp := &IdentifyResponse{
		Success:             true,
		Stage1:              res.Stage1,
		Confidence:          res.Confidence,
		Reasoning:           res.Reasoning,
		Alternatives:        make([]AlternativeResponse, 0, len(res.Alternatives)),
		NeedsReview:         res.NeedsReview,
		ReviewReason:        res.ReviewReason,
		Animals:             res.Animals,
		Count:               res.Count,
		IdentifyingFeatures: res.IdentifyingFeatures,
		Station:             res.Station,
		Outcome:             res.Outcome,
		Cached:              res.Cached,
		Model:               res.Model,
		DurationMs:          res.Duration.Milliseconds(),
	}

	if sp := res.Species; sp != nil {
		resp.Species = schema.StringPtr(sp.ID)
		resp.CommonName = schema.StringPtr(sp.CommonName)
		resp.ScientificName = schema.StringPtr(sp.ScientificName)
	} else {
		resp.SpeciesToken = res.SpeciesToken
	}

	for _, alt := range res.Alternatives {
		a := AlternativeResponse{SpeciesID: alt.SpeciesID, Confidence: alt.Confidence}
		if alt.Species != nil {
			a.SpeciesID = alt.Species.ID
			a.CommonName = alt.Species.CommonName
		}
		resp.Alternatives = append(resp.Alternatives, a)
	}

	if resp.Animals == nil {
		resp.Animals = []schema.Animal{}
	}
	if resp.IdentifyingFeatures == nil {
		resp.IdentifyingFeatures = []string{}
	}
	return resp
}

// Identify handles POST /identify
func (c *Controller) Identify(ctx echo.Context) error {
	var req IdentifyRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Context(errors.ContextOperation, "bind_identify_request").
			Build(), "Invalid request body")
	}

	res, err := c.identifier.Identify(ctx.Request().Context(), pipeline.Request{
		Image:   req.Image,
		Station: req.Station,
	})
	if err != nil {
		return c.HandleError(ctx, err, "Identification failed")
	}

	return ctx.JSON(http.StatusOK, NewIdentifyResponse(res))
}
