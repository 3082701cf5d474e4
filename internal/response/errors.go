package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrSessionActive         ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionNotFound       ErrCode = "SESSION_NOT_FOUND"
	ErrSessionNotScored      ErrCode = "SESSION_NOT_SCORED"
	ErrInvalidState          ErrCode = "INVALID_STATE"
	ErrInsufficientQuestions ErrCode = "INSUFFICIENT_QUESTIONS"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Correo electrónico o contraseña incorrectos."
	case ErrTokenRequired:
		return "Se requiere un token de autenticación."
	case ErrTokenInvalid:
		return "El token de autenticación no es válido."
	case ErrTokenExpired:
		return "El token de autenticación ha caducado."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "La validación ha fallado. Revisa los datos introducidos."
	case ErrInvalidID:
		return "El formato del identificador no es válido."
	case ErrInvalidPayload:
		return "El cuerpo de la petición no es válido."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Recurso no encontrado."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrSessionActive:
		return "Ya tienes un simulacro en curso. Termínalo antes de empezar otro."
	case ErrSessionNotFound:
		return "Simulacro no encontrado."
	case ErrSessionNotScored:
		return "Este simulacro todavía no tiene resultados."
	case ErrInvalidState:
		return "El simulacro ya no admite esta operación."
	case ErrInsufficientQuestions:
		return "No hay suficientes preguntas disponibles para esta configuración."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Demasiadas peticiones. Inténtalo de nuevo más tarde."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Se ha producido un error interno del servidor."
	default:
		return "Se ha producido un error inesperado."
	}
}
