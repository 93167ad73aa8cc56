package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/obsidian-cms/obsidian/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP statuses. Unrecognized errors
// are logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, component string, err error) {
	var partial *domain.PartialFailureError

	switch {
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrFileExists), errors.Is(err, domain.ErrAmbiguous):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrAuthenticationFailed),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrBadSignature),
		errors.Is(err, domain.ErrMalformedToken):
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrAccountDisabled), errors.Is(err, domain.ErrAccountBanned):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrPolicyViolation):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.As(err, &partial):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "some owned resources could not be deleted",
			"failed": partial.Failed,
		})
	default:
		log.Printf("ERROR [%s] %v", component, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// NodeResponse is the wire shape of a graph node.
type NodeResponse struct {
	UUID       string         `json:"uuid"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

func nodeResponse(node *domain.Node) NodeResponse {
	return NodeResponse{UUID: node.UUID, Labels: node.Labels, Properties: node.Properties}
}

func nodeResponses(nodes []*domain.Node) []NodeResponse {
	out := make([]NodeResponse, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, nodeResponse(node))
	}
	return out
}

// RelationshipResponse is the wire shape of a graph relationship.
type RelationshipResponse struct {
	UUID       string         `json:"uuid"`
	Type       string         `json:"type"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Properties map[string]any `json:"properties"`
}

func relationshipResponse(rel *domain.Relationship) RelationshipResponse {
	return RelationshipResponse{
		UUID:       rel.UUID,
		Type:       rel.Type,
		Source:     rel.SourceUUID,
		Target:     rel.TargetUUID,
		Properties: rel.Properties,
	}
}
