package endpoints

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/http/api"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/api/admin/auth/packets"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// AdminOperator is the name carried by every operator token.
const AdminOperator = "admin"

// AuthPublicModule mounts public auth endpoints (/auth/login)
func AuthPublicModule(jwtSecret, passwordHash string) api.Module {
	ctl := newAccountManager(jwtSecret, passwordHash)
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_POST("/auth/login", ctl.operatorLogin)
	})
}

// AuthSessionModule mounts private session endpoints (JWT required)
func AuthSessionModule(jwtSecret, passwordHash string) api.Module {
	ctl := newAccountManager(jwtSecret, passwordHash)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/auth/session", ctl.getSession)
	})
}

type AccountManager struct {
	jwtSecret    string
	passwordHash string
}

func newAccountManager(secret, passwordHash string) *AccountManager {
	return &AccountManager{jwtSecret: secret, passwordHash: passwordHash}
}

// POST /api/admin/auth/login
func (a *AccountManager) operatorLogin(ctx *gin.Context) (any, *api.APIError) {
	var request packets.LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	if !middleware.CheckPassword(a.passwordHash, request.Password) {
		log.Warn().Str("remote", ctx.ClientIP()).Msg("operator login rejected")
		return nil, &api.APIError{Code: http.StatusUnauthorized, Reason: api.ReasonUnauthorized, Message: "invalid credentials"}
	}

	token, err := middleware.GenerateJWT(AdminOperator, a.jwtSecret)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Reason: api.ReasonInternal, Message: "could not generate token"}
	}

	return packets.LoginResponse{Token: token}, nil
}

// GET /api/admin/auth/session
func (a *AccountManager) getSession(ctx *gin.Context, operator *model.Operator) (any, *api.APIError) {
	return packets.SessionResponse{
		Operator:   operator.Name,
		LoggedInAt: operator.LoggedInAt.Format(time.RFC3339),
	}, nil
}
