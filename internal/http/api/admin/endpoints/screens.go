package endpoints

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/controller"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/api"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/api/admin/packets"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

type ScreensController struct {
	service *controller.Service
}

func NewScreensController(service *controller.Service) *ScreensController {
	return &ScreensController{service: service}
}

// ScreensModule mounts the operator's screen management endpoints (JWT required).
func ScreensModule(service *controller.Service) api.Module {
	ctl := NewScreensController(service)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/screens", ctl.listScreens)
		c.POST("/screens/claim", ctl.claimScreen)
		c.DELETE("/screens/:id", ctl.releaseScreen)
		c.POST("/screens/:id/content", ctl.pushContent)
		c.PUT("/screens/:id/name", ctl.renameScreen)
	})
}

// RegistryModule mounts the endpoints screens and pairing links reach
// without a token.
func RegistryModule(service *controller.Service) api.Module {
	ctl := NewScreensController(service)
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_GET("/screens/:id", ctl.lookupScreen)
		c.PUBLIC_GET("/pair", ctl.pairScreen)
	})
}

// GET /api/admin/screens
func (s *ScreensController) listScreens(ctx *gin.Context, operator *model.Operator) (any, *api.APIError) {
	replicas, err := s.service.List(ctx.Request.Context())
	if err != nil {
		return nil, api.FromError(err)
	}

	out := make([]packets.ScreenResponse, 0, len(replicas))
	for _, r := range replicas {
		out = append(out, packets.NewScreenResponse(r))
	}
	return out, nil
}

// POST /api/admin/screens/claim
func (s *ScreensController) claimScreen(ctx *gin.Context, operator *model.Operator) (any, *api.APIError) {
	var request packets.ClaimScreenRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	replica, err := s.service.Claim(ctx.Request.Context(), request.ScreenURL, request.PIN, request.ScreenID)
	if err != nil {
		return nil, api.FromError(err)
	}
	log.Info().Str("operator", operator.Name).Str("screen_id", replica.ScreenID).Msg("operator claimed screen")
	return claimed(replica), nil
}

// DELETE /api/admin/screens/:id
func (s *ScreensController) releaseScreen(ctx *gin.Context, operator *model.Operator) (any, *api.APIError) {
	id := ctx.Param("id")
	if err := s.service.Release(ctx.Request.Context(), id); err != nil {
		return nil, api.FromError(err)
	}
	log.Info().Str("operator", operator.Name).Str("screen_id", id).Msg("operator released screen")
	return packets.ResultResponse{Success: true, Message: "screen released"}, nil
}

// POST /api/admin/screens/:id/content
func (s *ScreensController) pushContent(ctx *gin.Context, operator *model.Operator) (any, *api.APIError) {
	var request packets.PushContentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	if err := s.service.PushContent(ctx.Request.Context(), ctx.Param("id"), request.Content); err != nil {
		return nil, api.FromError(err)
	}
	return packets.ResultResponse{Success: true, Message: "content pushed"}, nil
}

// PUT /api/admin/screens/:id/name
func (s *ScreensController) renameScreen(ctx *gin.Context, operator *model.Operator) (any, *api.APIError) {
	var request packets.RenameScreenRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	replica, err := s.service.Rename(ctx.Request.Context(), ctx.Param("id"), request.Name)
	if err != nil {
		return nil, api.FromError(err)
	}
	screen := packets.NewScreenResponse(replica)
	return packets.ResultResponse{Success: true, Message: "screen renamed", Screen: &screen}, nil
}

// GET /api/screens/:id
func (s *ScreensController) lookupScreen(ctx *gin.Context) (any, *api.APIError) {
	replica, err := s.service.Lookup(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		return nil, api.FromError(err)
	}
	return packets.NewScreenResponse(replica), nil
}

// GET /api/pair?screenId=&pin=&callback=
func (s *ScreensController) pairScreen(ctx *gin.Context) (any, *api.APIError) {
	var query packets.PairQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	replica, err := s.service.Claim(ctx.Request.Context(), query.Callback, query.PIN, query.ScreenID)
	if err != nil {
		return nil, api.FromError(err)
	}
	log.Info().Str("screen_id", replica.ScreenID).Msg("screen paired through pairing link")
	return claimed(replica), nil
}

func claimed(replica model.Replica) packets.ResultResponse {
	screen := packets.NewScreenResponse(replica)
	return packets.ResultResponse{Success: true, Message: "screen claimed", Screen: &screen}
}
