package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jointrip/companion-service/internal/domain"
	"github.com/jointrip/companion-service/internal/log"
	"github.com/jointrip/companion-service/internal/middleware"
	"github.com/jointrip/companion-service/internal/response"
	"github.com/jointrip/companion-service/internal/service"
)

// Handler handles HTTP requests for companion-service.
type Handler struct {
	roomService service.RoomService
	userService service.UserService
	session     *middleware.SessionMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(roomService service.RoomService, userService service.UserService, session *middleware.SessionMiddleware) *Handler {
	return &Handler{
		roomService: roomService,
		userService: userService,
		session:     session,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("", h.Register)
			users.POST("/login", h.Login)
			users.PATCH("/contact", h.session.RequireAuth(), h.UpdateContact)
		}

		rooms := api.Group("/rooms")
		{
			// Public routes
			rooms.GET("/search", h.SearchRooms)
			rooms.GET("/:id", h.GetRoom)
			rooms.GET("/:id/live", h.GetLiveRoom)

			// Protected routes
			rooms.POST("", h.session.RequireAuth(), h.CreateRoom)
			rooms.POST("/:id/join", h.session.RequireAuth(), h.JoinRoom)
			rooms.POST("/:id/exit", h.session.RequireAuth(), h.ExitRoom)
			rooms.POST("/:id/close", h.session.RequireAuth(), h.CloseRoom)
			rooms.GET("/joined", h.session.RequireAuth(), h.GetJoinedRooms)
		}
	}
}

// Register creates a new user.
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind register request")
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Register(ctx, &req)
	if err != nil {
		l.Error().Err(err).Msg("failed to register user")
		response.Fault(c, err)
		return
	}

	response.Created(c, user)
}

// Login verifies a user and mints a session token.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.userService.Login(ctx, &req)
	if err != nil {
		l.Warn().Err(err).Msg("login failed")
		response.Fault(c, err)
		return
	}

	response.Success(c, resp)
}

// UpdateContact updates the caller's contact channels.
func (h *Handler) UpdateContact(c *gin.Context) {
	ctx := c.Request.Context()

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.userService.UpdateContact(ctx, userID, &req); err != nil {
		response.Fault(c, err)
		return
	}

	response.Success(c, nil)
}

// CreateRoom creates a new room owned by the caller.
func (h *Handler) CreateRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ownerID := middleware.GetUserID(c)
	if ownerID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create room request")
		response.BadRequest(c, err.Error())
		return
	}

	state, err := h.roomService.CreateRoom(ctx, ownerID, &req)
	if err != nil {
		l.Error().Err(err).Msg("failed to create room")
		response.Fault(c, err)
		return
	}

	response.Created(c, state)
}

// JoinRoom adds the caller to a room.
func (h *Handler) JoinRoom(c *gin.Context) {
	ctx := c.Request.Context()

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	state, err := h.roomService.JoinRoom(ctx, userID, c.Param("id"))
	if err != nil {
		response.Fault(c, err)
		return
	}

	response.Success(c, state)
}

// ExitRoom removes the caller from a room.
func (h *Handler) ExitRoom(c *gin.Context) {
	ctx := c.Request.Context()

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	state, err := h.roomService.ExitRoom(ctx, userID, c.Param("id"))
	if err != nil {
		response.Fault(c, err)
		return
	}

	response.Success(c, state)
}

// CloseRoom closes a room. Only the owner may close it.
func (h *Handler) CloseRoom(c *gin.Context) {
	ctx := c.Request.Context()

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	roomID := c.Param("id")
	state, err := h.roomService.GetLiveRoom(ctx, roomID)
	if err != nil {
		response.Fault(c, err)
		return
	}
	if state.OwnerID != userID {
		response.Error(c, 403, "FORBIDDEN", "only the owner can close the room")
		return
	}

	if err := h.roomService.CloseRoom(ctx, roomID); err != nil {
		response.Fault(c, err)
		return
	}

	response.Success(c, nil)
}

// GetRoom retrieves a room's durable record with its archived or live state.
func (h *Handler) GetRoom(c *gin.Context) {
	ctx := c.Request.Context()

	room, err := h.roomService.GetRoom(ctx, c.Param("id"))
	if err != nil {
		response.Fault(c, err)
		return
	}

	response.Success(c, room)
}

// GetLiveRoom retrieves a room's live cache state only.
func (h *Handler) GetLiveRoom(c *gin.Context) {
	ctx := c.Request.Context()

	state, err := h.roomService.GetLiveRoom(ctx, c.Param("id"))
	if err != nil {
		response.Fault(c, err)
		return
	}

	response.Success(c, state)
}

// GetJoinedRooms lists the rooms the caller has ever joined.
func (h *Handler) GetJoinedRooms(c *gin.Context) {
	ctx := c.Request.Context()

	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	var page paginationQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page.clamp()

	result, err := h.roomService.GetJoinedRooms(ctx, userID, page.Offset, page.Limit)
	if err != nil {
		response.Fault(c, err)
		return
	}

	response.Success(c, result)
}

// SearchRooms searches durable room records.
func (h *Handler) SearchRooms(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.SearchRoomsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Limit < 1 || req.Limit > 20 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	result, err := h.roomService.SearchRooms(ctx, &req)
	if err != nil {
		response.Fault(c, err)
		return
	}

	response.Success(c, result)
}

type paginationQuery struct {
	Offset int `form:"offset"`
	Limit  int `form:"limit"`
}

// clamp enforces the outer pagination bounds: offset>=0, 1<=limit<=20.
func (p *paginationQuery) clamp() {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit < 1 || p.Limit > 20 {
		p.Limit = 20
	}
}
