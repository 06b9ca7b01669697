package packets

// POST /api/admin/auth/login
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}
