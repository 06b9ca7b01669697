package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

const currentOperatorKey = "currentOperator"

// uses bcrypt to hash a plaintext password.
func HashPassword(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// compares a bcrypt hash with the plaintext.
func CheckPassword(hash, plain string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	return err == nil
}

// retrieves *model.Operator from Gin context (after JWTMiddleware has run).
func GetCurrentOperator(c *gin.Context) (*model.Operator, bool) {
	v, exists := c.Get(currentOperatorKey)
	if !exists {
		return nil, false
	}
	operator, ok := v.(*model.Operator)
	return operator, ok
}
