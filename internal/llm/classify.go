package llm

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/observability/metrics"
)

// errEmptyResponse marks a call that succeeded but returned no text
var errEmptyResponse = errors.NewStd("model returned an empty response")

// failure is the retry classification of one failed attempt
type failure struct {
	transient   bool
	rateLimited bool
	status      int
}

func (f failure) class() string {
	switch {
	case f.rateLimited:
		return metrics.ClassRateLimited
	case f.transient:
		return metrics.ClassTransient
	default:
		return metrics.ClassPermanent
	}
}

// statusCoder is implemented by StatusError and similar HTTP errors
type statusCoder interface {
	StatusCode() int
}

var (
	rateLimitMarkers = []string{"quota", "rate limit", "ratelimit", "too many requests", "resource exhausted", "resource_exhausted"}
	transientMarkers = []string{"overloaded", "unavailable", "try again", "temporarily", "deadline exceeded", "timeout"}
)

// classify decides whether err is worth retrying
func classify(err error) failure {
	if errors.Is(err, errEmptyResponse) || errors.Is(err, context.DeadlineExceeded) {
		return failure{transient: true}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code != 0 {
		return classifyStatus(gerr.Code)
	}
	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() != 0 {
		return classifyStatus(sc.StatusCode())
	}

	if st, ok := grpcstatus.FromError(err); ok {
		switch st.Code() {
		case codes.ResourceExhausted:
			return failure{transient: true, rateLimited: true, status: http.StatusTooManyRequests}
		case codes.Unavailable, codes.Internal, codes.DeadlineExceeded, codes.Aborted:
			return failure{transient: true}
		case codes.Unknown:
			// fall through to message inspection
		default:
			return failure{}
		}
	}

	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return failure{transient: true, rateLimited: true}
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return failure{transient: true}
		}
	}
	return failure{}
}

func classifyStatus(code int) failure {
	switch {
	case code == http.StatusTooManyRequests:
		return failure{transient: true, rateLimited: true, status: code}
	case code >= 500, code == http.StatusRequestTimeout:
		return failure{transient: true, status: code}
	default:
		return failure{status: code}
	}
}
