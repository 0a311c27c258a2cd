// Package audit records who changed what through the write endpoints of the API.
package audit

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-inventory/internal/common"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindSystem    ActorKind = "system"
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes the entity performing the action.
type Actor struct {
	Kind   ActorKind
	UserID string
	Role   string
}

// Entry is one audited request.
type Entry struct {
	ID         string    `json:"id"`
	At         time.Time `json:"at"`
	ActorKind  ActorKind `json:"actorKind"`
	UserID     string    `json:"userId,omitempty"`
	Role       string    `json:"role,omitempty"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resourceId,omitempty"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	IP         string    `json:"ip,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
}

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, limit, offset int) ([]Entry, int, error)
}

// Service builds and stores audit entries.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64
	Now          func() time.Time
}

// Record stores one entry for req when auditing is enabled.
func (s Service) Record(ctx context.Context, actor Actor, route, resourceID string, req *http.Request, status int) error {
	if !s.Enabled {
		return nil
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 && rand.Float64() > s.SamplingRate {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	if status == 0 {
		status = http.StatusOK
	}
	return s.Store.Insert(ctx, Entry{
		ID:         uuid.NewString(),
		At:         now().UTC(),
		ActorKind:  normalizeActorKind(actor.Kind),
		UserID:     strings.TrimSpace(actor.UserID),
		Role:       strings.TrimSpace(actor.Role),
		Action:     strings.ToUpper(req.Method) + " " + route,
		Resource:   resourceOf(route),
		ResourceID: strings.TrimSpace(resourceID),
		Method:     req.Method,
		Path:       req.URL.Path,
		Status:     status,
		IP:         common.ClientIP(req),
		RequestID:  middleware.GetReqID(req.Context()),
	})
}

// resourceOf turns /api/v1/orders/{id}/items into orders.items.
func resourceOf(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "v1" {
		parts = parts[2:]
	}
	kept := parts[:0]
	for _, p := range parts {
		if p != "" && !strings.HasPrefix(p, "{") {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "unknown"
	}
	return strings.Join(kept, ".")
}

func normalizeActorKind(kind ActorKind) ActorKind {
	switch kind {
	case ActorKindUser, ActorKindSystem:
		return kind
	default:
		return ActorKindAnonymous
	}
}
