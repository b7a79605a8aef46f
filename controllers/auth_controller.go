package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/organizer/middleware"
	"github.com/cppla/organizer/services"
	"github.com/cppla/organizer/utils"
)

// AuthController handles sign-up, sign-in and sign-out.
type AuthController struct {
	creds *services.CredentialService
	log   *zap.Logger
}

// NewAuthController creates an AuthController.
func NewAuthController(creds *services.CredentialService, log *zap.Logger) *AuthController {
	return &AuthController{creds: creds, log: log}
}

// Signup registers a local account and returns it with a session token.
func (a *AuthController) Signup(ctx *gin.Context) {
	var req struct {
		Email           string `json:"email" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword"`
		FirstName       string `json:"firstName"`
		LastName        string `json:"lastName"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Message(ctx, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	res, err := a.creds.Register(ctx.Request.Context(), services.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
	})
	if err != nil {
		a.fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// Signin verifies credentials and returns the account with a session token.
func (a *AuthController) Signin(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Message(ctx, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	res, err := a.creds.Authenticate(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// Signout revokes the presented session token.
func (a *AuthController) Signout(ctx *gin.Context) {
	token, err := middleware.BearerToken(ctx.GetHeader("Authorization"))
	if err != nil {
		utils.Message(ctx, http.StatusUnauthorized, "invalid authorization header")
		return
	}
	if err := a.creds.SignOut(ctx.Request.Context(), token); err != nil {
		if errors.Is(err, services.ErrInvalidCredential) {
			utils.Message(ctx, http.StatusUnauthorized, "Invalid token")
			return
		}
		a.fail(ctx, err)
		return
	}
	utils.Message(ctx, http.StatusOK, "Signed out")
}

func (a *AuthController) fail(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.Message(ctx, http.StatusNotFound, "User doesn't exist")
	case errors.Is(err, services.ErrInvalidCredential):
		utils.Message(ctx, http.StatusBadRequest, "Invalid password.")
	case errors.Is(err, services.ErrDuplicateAccount):
		utils.Message(ctx, http.StatusBadRequest, "An account with that email already exists.")
	case errors.Is(err, services.ErrPasswordMismatch):
		utils.Message(ctx, http.StatusBadRequest, "Passwords do not match.")
	case errors.Is(err, services.ErrPasswordTooLong):
		utils.Message(ctx, http.StatusBadRequest, "Password must be at most 72 bytes.")
	default:
		_ = ctx.Error(err)
		utils.Message(ctx, http.StatusInternalServerError, "Something went wrong.")
	}
}
