package apperror

import "net/http"

// Каталог ошибок системы. Сообщения — часть внешнего контракта API.
var (
	UnknownError = Definition{"UNKNOWN_ERROR", CodeUnknown, "Unknown Error", http.StatusInternalServerError}

	InternalServerError = Definition{"INTERNAL_SERVER_ERROR", CodeServer, "Internal server error.", http.StatusInternalServerError}
	DatabaseError       = Definition{"DATABASE_ERROR", CodeDatabase, "Internal server error.", http.StatusInternalServerError}
	BadRequest          = Definition{"BAD_REQUEST", CodeRequest, "Request is incomplete.", http.StatusBadRequest}

	Unauthorized               = Definition{"UNAUTHORIZED", CodeAuth, "Unauthorized access.", http.StatusUnauthorized}
	UnauthorizedResourceAccess = Definition{"UNAUTHORIZED_RESOURCE_ACCESS", CodeAuth, "Unauthorized resource access.", http.StatusForbidden}
	CredentialIncorrect        = Definition{"CREDENTIAL_INCORRECT", CodeAuth, "Credential incorrect", http.StatusUnauthorized}

	CanNotActivateUser    = Definition{"CAN_NOT_ACTIVATE_USER", CodeDatabase, "Could not activate user.", http.StatusInternalServerError}
	CanNotActivateSession = Definition{"CAN_NOT_ACTIVATE_SESSION", CodeDatabase, "Could not activate session.", http.StatusInternalServerError}

	UserAlreadyExists       = Definition{"USER_ALREADY_EXISTS", CodeAuth, "User already exists.", http.StatusForbidden}
	SessionIsAlreadyActive  = Definition{"SESSION_IS_ALREADY_ACTIVE", CodeAuth, "Session is already active.", http.StatusForbidden}
	SessionIsNotActive      = Definition{"SESSION_IS_NOT_ACTIVE", CodeAuth, "Session is not active.", http.StatusForbidden}
	AnotherSessionIsActive  = Definition{"ANOTHER_SESSION_IS_ACTIVE", CodeAuth, "Another session is already active. Sign out of that to sign in with this profile", http.StatusForbidden}
	UserNotFound            = Definition{"USER_NOT_FOUND", CodeAuth, "User not found.", http.StatusNotFound}
	MediaNotFound           = Definition{"MEDIA_NOT_FOUND", CodeRoute, "Media record not found.", http.StatusNotFound}
	ResourceNotFound        = Definition{"RESOURCE_NOT_FOUND", CodeFile, "Media not found.", http.StatusNotFound}
	MediaTypeNotSupported   = Definition{"MEDIA_TYPE_NOT_SUPPORTED", CodeRequest, "File type not supported.", http.StatusForbidden}
	MediaTooLarge           = Definition{"MEDIA_TOO_LARGE", CodeRequest, "File is too large", http.StatusForbidden}
	SimultaneousUploadLimit = Definition{"ALLOWED_SIMULTANEOUS_UPLOADS_EXCEEDED", CodeRequest, "File array exceeds the allowed size", http.StatusForbidden}
	NoNotificationsFound    = Definition{"NO_NOTIFICATIONS_FOUND", CodeRoute, "No notifications found.", http.StatusNotFound}
	CanNotUpdateFileRecord  = Definition{"CAN_NOT_UPDATE_FILE_RECORD", CodeDatabase, "Could not update file record.", http.StatusInternalServerError}
	CanNotRemoveFileRecord  = Definition{"CAN_NOT_REMOVE_FILE_RECORD", CodeDatabase, "Could not remove file record.", http.StatusInternalServerError}
	ForbiddenUpdate         = Definition{"FORBIDDEN_UPDATE", CodeAuth, "Forbidden update.", http.StatusForbidden}
	ForbiddenDelete         = Definition{"FORBIDDEN_DELETE", CodeAuth, "Forbidden delete.", http.StatusForbidden}
	LogsNotFound            = Definition{"LOGS_NOT_FOUND", CodeRoute, "No logs were found.", http.StatusNotFound}

	RouteNotFound     = Definition{"ROUTE_NOT_FOUND", CodeRoute, "Route not found.", http.StatusNotFound}
	MethodNotAllowed  = Definition{"METHOD_NOT_ALLOWED", CodeRoute, "Method not allowed.", http.StatusMethodNotAllowed}
	ProcessingTimeout = Definition{"PROCESSING_TIMEOUT", CodeServer, "Media processing timed out.", http.StatusServiceUnavailable}
)
