package api

var (
	errorMessageMap = map[int64]string{
		999:  "internal server error",
		1000: "invalid API key",
		1001: "actor lacks the moderator role",

		1100: "unknown report",
		1101: "unknown zone",
		1102: "report run already in progress",
	}

	errorInternalServer = errorJSON(999)
	errorInvalidAPIKey  = errorJSON(1000)
	errorMissingRole    = errorJSON(1001)

	errorUnknownReport = errorJSON(1100)
	errorUnknownZone   = errorJSON(1101)
	errorRunInProgress = errorJSON(1102)
)

type ErrorResponse struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func errorJSON(code int64) ErrorResponse {
	var message string
	if msg, ok := errorMessageMap[code]; ok {
		message = msg
	} else {
		message = "unknown"
	}

	return ErrorResponse{Code: code, Message: message}
}
