package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/logger"
	"rental-backend/pkg/utils"
)

func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithComponent("http").WithFields(logrus.Fields{
					"panic":  err,
					"method": r.Method,
					"path":   r.URL.Path,
					"stack":  string(debug.Stack()),
				}).Error("panic recovered")

				utils.ErrorMessage(w, apperrors.KindInternal, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
