package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-inventory/internal/common"
	"github.com/noah-isme/backend-inventory/internal/obs"
)

// HTTPRecorder records unsafe requests after they have been handled.
type HTTPRecorder struct {
	Service         *Service
	ResourceIDParam string
	OnError         func(error)
}

// Middleware records every non-GET request passing through it.
func (r HTTPRecorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.Service == nil || !r.Service.Enabled || safeMethod(req.Method) {
			next.ServeHTTP(w, req)
			return
		}
		recorder := obs.NewStatusRecorder(w)
		next.ServeHTTP(recorder, req)

		var route, resourceID string
		if rc := chi.RouteContext(req.Context()); rc != nil {
			route = rc.RoutePattern()
			if r.ResourceIDParam != "" {
				resourceID = rc.URLParam(r.ResourceIDParam)
			}
		}
		if err := r.Service.Record(req.Context(), actorOf(req), route, resourceID, req, recorder.Status()); err != nil && r.OnError != nil {
			r.OnError(err)
		}
	})
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func actorOf(req *http.Request) Actor {
	if userID, ok := common.UserID(req.Context()); ok && userID != "" {
		return Actor{Kind: ActorKindUser, UserID: userID, Role: common.Role(req.Context())}
	}
	return Actor{Kind: ActorKindAnonymous}
}
