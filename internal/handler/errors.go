package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/internal/utils"
	"github.com/Baaaki/chapterhub/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by request structs.
// It is safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Log.Error("Binding validator is not go-playground/validator; custom tags unavailable")
			return
		}
		if err := registerValidators(v); err != nil {
			logger.Log.Error("Failed to register binding validators", zap.Error(err))
		}
	})
}

var customValidators = map[string]validator.Func{
	"notblank": func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	},
}

func registerValidators(v *validator.Validate) error {
	for tag, fn := range customValidators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q: %w", tag, err)
		}
	}
	return nil
}

// respondError writes err as JSON with the status of its kind. Client errors
// are logged at warn, everything else at error with the full cause.
func respondError(c *gin.Context, err error, action string) {
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("kind", string(apperr.KindOf(err))),
		zap.Error(err),
	}
	if apperr.IsClientError(err) {
		logger.Log.Warn("Request rejected", fields...)
	} else {
		logger.Log.Error("Request failed", fields...)
	}

	c.JSON(apperr.HTTPStatus(err), gin.H{
		"error": apperr.PublicMessage(err),
		"code":  string(apperr.KindOf(err)),
	})
}

// bindError turns a binding failure into a validation error naming the first
// offending field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Validation("invalid field " + strings.ToLower(fe.Field()) + ": failed " + fe.Tag())
	}
	return apperr.Validation("invalid request body")
}

func currentClaims(c *gin.Context) (*utils.Claims, bool) {
	value, ok := c.Get("claims")
	if !ok {
		return nil, false
	}
	claims, ok := value.(*utils.Claims)
	return claims, ok
}

// requireClaims aborts with 401 when the auth middleware did not run.
func requireClaims(c *gin.Context) (*utils.Claims, bool) {
	claims, ok := currentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil, false
	}
	return claims, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid " + name)
	}
	return id, nil
}
