package handler

import "net/http"

// StatusResponse is the body of GET /.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleStatus reports that the service is up.
//
// HTTP: GET /
func HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Message: "YouTube Generator App is running!",
	})
}
