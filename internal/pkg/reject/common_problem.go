package reject

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	genericUnexpectedError string = "error.generic.unexpected"
	invalidRequest         string = "error.generic.invalid-request-payload"
	cannotParseBody        string = "error.generic.cannot-parse-payload"
	genericNotFound        string = "error.generic.not-found"
	gameStateConflict      string = "error.game.state-conflict"
	ledgerTransferFailed   string = "error.ledger.transfer-failed"
	databaseError          string = "error.data.access"
	configurationMissing   string = "error.config.missing"
)

func RequestValidationProblem() Problem {
	return NewProblem().
		WithTitle("Invalid request payload").
		WithStatus(http.StatusBadRequest).
		WithCode(invalidRequest).
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

func UnexpectedProblem(err error) Problem {
	log.Warn().Err(err).Msg("Unexpected error while handling request: " + err.Error())
	return NewProblem().
		WithTitle("Unexpected error").
		WithStatus(http.StatusInternalServerError).
		WithCode(genericUnexpectedError).
		Build()
}

// ProblemFor maps an error from the taxonomy onto the problem document returned to clients.
func ProblemFor(err error) Problem {
	var e *Error
	if !errors.As(err, &e) {
		return UnexpectedProblem(err)
	}

	switch e.Kind {
	case KindValidation:
		return RequestValidationProblem().withDetail(e.Detail)
	case KindNotFound:
		return NotFoundProblem().withDetail(e.Detail)
	case KindConflict:
		return NewProblem().
			WithTitle("Game is not in a state that allows this operation").
			WithStatus(http.StatusConflict).
			WithCode(gameStateConflict).
			WithDetail(e.Detail).
			Build()
	case KindTransfer:
		log.Warn().Err(err).Msg("Ledger transfer failed while handling request")
		return NewProblem().
			WithTitle("Ledger transfer failed").
			WithStatus(http.StatusBadGateway).
			WithCode(ledgerTransferFailed).
			WithDetail(e.Reason).
			Build()
	case KindStorage:
		log.Error().Err(err).Msg("Storage failure while handling request")
		return NewProblem().
			WithTitle("Trouble accessing game data").
			WithStatus(http.StatusServiceUnavailable).
			WithCode(databaseError).
			Build()
	case KindConfig:
		log.Error().Err(err).Msg("Missing configuration while handling request")
		return NewProblem().
			WithTitle("Service is not configured for this request").
			WithStatus(http.StatusInternalServerError).
			WithCode(configurationMissing).
			WithDetail(e.Detail).
			Build()
	default:
		return UnexpectedProblem(err)
	}
}

func (p Problem) withDetail(detail string) Problem {
	p.Detail = detail
	return p
}
