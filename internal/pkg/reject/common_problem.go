package reject

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	genericUnexpectedError string = "error.generic.unexpected"
	cannotParseParams      string = "error.generic.cannot-parse-params"
	invalidRequest         string = "error.generic.invalid-request-payload"
	cannotParseBody        string = "error.generic.cannot-parse-payload"
	genericNotFound        string = "error.generic.not-found"
	storeUnavailable       string = "error.store.unavailable"
	actionNotPermitted     string = "error.action.not-permitted"
	alreadyResolved        string = "error.rematch.already-resolved"
)

func RequestValidationProblem() Problem {
	return NewProblem().
		WithTitle("Invalid request payload").
		WithStatus(http.StatusBadRequest).
		WithCode(invalidRequest).
		Build()
}

func RequestParamsProblem() Problem {
	return NewProblem().
		WithTitle("Invalid request parameters").
		WithStatus(http.StatusBadRequest).
		WithCode(cannotParseParams).
		Build()
}

func BodyParseProblem() Problem {
	return NewProblem().
		WithTitle("Cannot read payload").
		WithStatus(http.StatusBadRequest).
		WithCode(cannotParseBody).
		Build()
}

func NotFoundProblem() Problem {
	return NewProblem().
		WithTitle("Record not found").
		WithStatus(http.StatusNotFound).
		WithCode(genericNotFound).
		Build()
}

// StoreUnavailableProblem covers transient store failures. Callers are
// expected to retry on their next poll tick rather than treat this as a
// terminal outcome.
func StoreUnavailableProblem(err error) Problem {
	log.Warn().Err(err).Msg("Store unavailable while handling request")
	return NewProblem().
		WithTitle("Store temporarily unavailable").
		WithStatus(http.StatusServiceUnavailable).
		WithCode(storeUnavailable).
		Build()
}

func NotPermittedProblem() Problem {
	return NewProblem().
		WithTitle("Action not permitted").
		WithStatus(http.StatusForbidden).
		WithCode(actionNotPermitted).
		Build()
}

// AlreadyResolvedProblem reports a lost race on a one-time transition: the
// request was settled by the other party or an earlier attempt.
func AlreadyResolvedProblem() Problem {
	return NewProblem().
		WithTitle("Rematch request already resolved").
		WithStatus(http.StatusConflict).
		WithCode(alreadyResolved).
		Build()
}

func UnexpectedProblem(err error) Problem {
	log.Warn().Err(err).Msg("Unexpected error while handling request: " + err.Error())
	return NewProblem().
		WithTitle("Unexpected error").
		WithStatus(http.StatusInternalServerError).
		WithCode(genericUnexpectedError).
		Build()
}
