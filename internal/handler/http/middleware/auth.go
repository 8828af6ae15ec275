package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/timeoff-sync/internal/handler/http/response"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// OperatorRequired admits requests carrying a verified operator token. It
// runs after jwtauth.Verifier.
func OperatorRequired(next http.Handler) http.Handler {
	hfn := func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())

		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}

		if token == nil {
			response.HandleError(w, jwt.ErrInvalidToken)
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != jwt.TokenTypeOperator {
			response.HandleError(w, jwt.ErrInvalidToken)
			return
		}

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hfn)
}
