package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bolekz/riffa-games/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Ошибка программиста: передан не указатель.
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

func unprocessableResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnprocessableEntity, message)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Отсутствующие ресурсы
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrGameNotFound),
		errors.Is(err, services.ErrMiniGameNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrAttemptNotFound),
		errors.Is(err, services.ErrPrizeNotFound),
		errors.Is(err, services.ErrClaimNotFound):
		notFoundResponse(w, r)

	// Конфликты и исчерпанные ресурсы
	case errors.Is(err, services.ErrUserEmailConflict),
		errors.Is(err, services.ErrUserNicknameConflict),
		errors.Is(err, services.ErrPrizeRankConflict),
		errors.Is(err, services.ErrTicketsSoldOut),
		errors.Is(err, services.ErrAttemptLimitReached),
		errors.Is(err, services.ErrClaimAlreadyResolved):
		conflictResponse(w, r, err.Error())

	// Невалидные данные и бизнес-правила
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrTournamentInvalidDates),
		errors.Is(err, services.ErrTournamentInvalidPrice),
		errors.Is(err, services.ErrTournamentInvalidTarget),
		errors.Is(err, services.ErrTournamentInvalidAttempts),
		errors.Is(err, services.ErrScoreOutOfBounds):
		badRequestResponse(w, r, err)

	// Недопустимое состояние
	case errors.Is(err, services.ErrTournamentUnavailable),
		errors.Is(err, services.ErrTournamentNotActive),
		errors.Is(err, services.ErrOutOfCompetitionWindow),
		errors.Is(err, services.ErrNoAvailableAttempt),
		errors.Is(err, services.ErrFinalizeTooEarly):
		unprocessableResponse(w, r, err.Error())

	// Баланс
	case errors.Is(err, services.ErrInsufficientBalance):
		errorResponse(w, r, http.StatusPaymentRequired, err.Error())

	// Аутентификация и доступ
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAuthenticationFailed):
		unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrClaimAccessDenied):
		forbiddenResponse(w, r, err.Error())

	// Дефект данных призов
	case errors.Is(err, services.ErrPrizeMisconfigured):
		unprocessableResponse(w, r, err.Error())

	// Платёжный шлюз
	case errors.Is(err, services.ErrPaymentGatewayFailure):
		errorResponse(w, r, http.StatusBadGateway, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}
