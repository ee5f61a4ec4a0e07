package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/stagepass/api/pkg/apierror"
	"github.com/stagepass/api/pkg/domain/shared"
	"github.com/stagepass/api/pkg/jwt"
)

const actorKey contextKey = "actor"

// Actor is the authenticated principal of a request.
type Actor struct {
	ID    shared.ID
	Email string
}

// Auth validates the bearer token and attaches the actor to the
// request context.
func Auth(tokens *jwt.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				apierror.Unauthorized("").WriteJSON(w)
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				apierror.Unauthorized("Invalid authorization header").WriteJSON(w)
				return
			}

			claims, err := tokens.Validate(tokenString)
			if err != nil {
				apierror.Unauthorized("Invalid or expired token").WriteJSON(w)
				return
			}

			actorID, err := shared.IDFromString(claims.UserID)
			if err != nil {
				apierror.Unauthorized("Invalid token subject").WriteJSON(w)
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, Actor{
				ID:    actorID,
				Email: claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the authenticated actor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
