package endpoints

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/http/api"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
	"github.com/Nixie-Tech-LLC/beacon/internal/pairing"
	"github.com/Nixie-Tech-LLC/beacon/internal/push"
	"github.com/Nixie-Tech-LLC/beacon/internal/screen"
)

// Options carries the settings the screen API needs besides its services.
type Options struct {
	// PublicURL is where the controller reaches this screen.
	PublicURL string
	// ControllerURL is the controller an unclaimed screen advertises in its
	// pairing code. Empty disables the pairing code.
	ControllerURL string
	Stream        push.StreamConfig
}

type ScreenController struct {
	state   *screen.State
	pairing *pairing.Service
	opts    Options
}

func NewScreenController(state *screen.State, pairingSvc *pairing.Service, opts Options) *ScreenController {
	return &ScreenController{state: state, pairing: pairingSvc, opts: opts}
}

// ScreenModule exposes the screen API on the group it is mounted on.
func ScreenModule(state *screen.State, pairingSvc *pairing.Service, opts Options) api.Module {
	ctl := NewScreenController(state, pairingSvc, opts)
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_GET("/identity", ctl.getIdentity)
		c.RAW(http.MethodGet, "/pairing-code", ctl.getPairingCode)
		c.PUBLIC_POST("/claim", ctl.claim)
		c.PUBLIC_POST("/release", ctl.release)

		c.PUBLIC_GET("/content", ctl.getContent)
		c.PUBLIC_POST("/content", ctl.replaceContent)
		c.PUBLIC_POST("/content/scheduled", ctl.scheduleContent)
		c.PUBLIC_PUT("/name", ctl.rename)

		c.RAW(http.MethodGet, "/events", ctl.events)
		c.RAW(http.MethodGet, "/ws", ctl.websocket)
		c.PUBLIC_GET("/status", ctl.status)
	})
}

// GET /identity
func (t *ScreenController) getIdentity(c *gin.Context) (any, *api.APIError) {
	current, err := t.state.Load(c.Request.Context())
	if err != nil {
		return nil, api.FromError(err)
	}
	link, err := t.pairingURL(current)
	if err != nil && !errors.Is(err, model.ErrMissingFields) {
		log.Warn().Err(err).Str("screen_id", current.ScreenID).Msg("could not build pairing url")
	}
	return packets.NewIdentityResponse(current, link), nil
}

// GET /pairing-code
func (t *ScreenController) getPairingCode(c *gin.Context) {
	current, err := t.state.Load(c.Request.Context())
	if err != nil {
		api.WriteError(c, api.FromError(err))
		return
	}
	if current.Registered {
		api.WriteError(c, &api.APIError{Code: http.StatusConflict, Reason: api.ReasonInvalidScreenID, Message: "screen is already claimed"})
		return
	}
	link, err := t.pairingURL(current)
	if err != nil {
		api.WriteError(c, api.FromError(err))
		return
	}
	png, err := pairing.RenderPairingCode(link)
	if err != nil {
		api.WriteError(c, api.FromError(err))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// POST /claim
func (t *ScreenController) claim(c *gin.Context) (any, *api.APIError) {
	var req packets.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	claimed, err := t.pairing.Claim(c.Request.Context(), req)
	if err != nil {
		return nil, api.FromError(err)
	}
	return result("screen claimed", nil, claimed), nil
}

// POST /release
func (t *ScreenController) release(c *gin.Context) (any, *api.APIError) {
	var req packets.ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	released, err := t.pairing.Release(c.Request.Context(), req.ScreenID)
	if err != nil {
		return nil, api.FromError(err)
	}
	return result("screen released", nil, released), nil
}

// GET /content
func (t *ScreenController) getContent(c *gin.Context) (any, *api.APIError) {
	current, err := t.state.Load(c.Request.Context())
	if err != nil {
		return nil, api.FromError(err)
	}
	content := current.Content
	if content == nil {
		content = []model.Slide{}
	}
	return packets.ContentResponse{Content: content, LastUpdate: current.LastUpdate}, nil
}

// POST /content
func (t *ScreenController) replaceContent(c *gin.Context) (any, *api.APIError) {
	var req packets.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	updated, applied, err := t.state.ApplyContent(c.Request.Context(), req.ScreenID, req.Content)
	if err != nil {
		return nil, api.FromError(err)
	}
	if !applied {
		log.Debug().Str("screen_id", req.ScreenID).Msg("content for another screen ignored")
		return result("", &applied, model.Screen{}), nil
	}
	return result("content updated", &applied, updated), nil
}

// POST /content/scheduled
func (t *ScreenController) scheduleContent(c *gin.Context) (any, *api.APIError) {
	var req packets.ScheduledContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if err := t.state.ScheduleContent(c.Request.Context(), req.ScreenID, req.Content, req.ScheduleTime); err != nil {
		return nil, api.FromError(err)
	}
	return packets.ResultResponse{Success: true, Message: "content scheduled"}, nil
}

// PUT /name
func (t *ScreenController) rename(c *gin.Context) (any, *api.APIError) {
	var req packets.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	renamed, err := t.state.Rename(c.Request.Context(), req.ScreenID, req.Name)
	if err != nil {
		return nil, api.FromError(err)
	}
	return result("name updated", nil, renamed), nil
}

// GET /events
func (t *ScreenController) events(c *gin.Context) {
	sub, ok := t.subscribe(c)
	if !ok {
		return
	}
	push.ServeSSE(c, sub, t.opts.Stream)
}

// GET /ws
func (t *ScreenController) websocket(c *gin.Context) {
	sub, ok := t.subscribe(c)
	if !ok {
		return
	}
	// the upgrader has already answered the client on failure
	if err := push.ServeWS(c.Writer, c.Request, sub, t.opts.Stream); err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
	}
}

// GET /status
func (t *ScreenController) status(c *gin.Context) (any, *api.APIError) {
	if _, err := t.state.Load(c.Request.Context()); err != nil {
		return nil, api.FromError(err)
	}
	return packets.StatusResponse{Operational: t.pairing.VerifyPresence(c.Request.Context())}, nil
}

func (t *ScreenController) subscribe(c *gin.Context) (*push.Subscription, bool) {
	if _, err := t.state.Load(c.Request.Context()); err != nil {
		api.WriteError(c, api.FromError(err))
		return nil, false
	}
	sub, err := t.state.Subscribe()
	if err != nil {
		api.WriteError(c, api.FromError(err))
		return nil, false
	}
	log.Debug().Str("subscription_id", sub.ID).Str("remote", c.ClientIP()).Msg("push subscriber connected")
	return sub, true
}

// pairingURL points at the controller this screen is bound to, or the
// configured one while unclaimed.
func (t *ScreenController) pairingURL(current model.Screen) (string, error) {
	controllerURL := t.opts.ControllerURL
	if current.ControllerURL != nil {
		controllerURL = *current.ControllerURL
	}
	return pairing.PairingURL(current.Identity, controllerURL, t.opts.PublicURL)
}

func result(message string, applied *bool, s model.Screen) packets.ResultResponse {
	out := packets.ResultResponse{Success: true, Message: message, Applied: applied}
	if s.ScreenID != "" {
		snap := s.Snapshot()
		out.Screen = &snap
	}
	return out
}
