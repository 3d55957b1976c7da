package api

import (
	"encoding/json"
	"net/http"
)

type askRequest struct {
	Question string `json:"question" validate:"required,max=4000"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeAndValidate(w, r, 64<<10, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ans, err := s.asker.Ask(r.Context(), req.Question)
	if err != nil {
		s.log.Error("ask failed", "error", err)
		jsonError(w, "could not answer question", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ans)
}
