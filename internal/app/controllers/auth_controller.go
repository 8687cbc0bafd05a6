package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/tuitiontrack/internal/app/auth"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/app/services"
	"github.com/yigit/tuitiontrack/internal/middleware"
)

// Session keys of the login flow
const (
	sessionOTPChallenge = "otp_challenge"
	sessionSignupMobile = "signup_mobile"
)

// AuthController handles tutor login, signup, profile and student login
type AuthController struct {
	authService  *services.AuthService
	tutorService *services.TutorService
	logger       zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, tutorService *services.TutorService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService:  authService,
		tutorService: tutorService,
		logger:       logger,
	}
}

// Home sends the visitor to the landing page of their identity.
func (c *AuthController) Home(ctx *gin.Context) {
	ctx.Redirect(http.StatusFound, middleware.CurrentIdentity(ctx).HomePath())
}

// Welcome renders the public landing page.
func (c *AuthController) Welcome(ctx *gin.Context) {
	if id := middleware.CurrentIdentity(ctx); id.SignedIn() {
		ctx.Redirect(http.StatusFound, id.HomePath())
		return
	}
	render(ctx, http.StatusOK, "welcome.html", nil)
}

// LoginPage renders the tutor login and signup form.
func (c *AuthController) LoginPage(ctx *gin.Context) {
	if id := middleware.CurrentIdentity(ctx); id.IsTutor() {
		ctx.Redirect(http.StatusFound, id.HomePath())
		return
	}
	action := ctx.DefaultQuery("action", "login")
	render(ctx, http.StatusOK, "login.html", gin.H{"Action": action})
}

// Login starts a tutor login or signup with a mobile number.
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBind(&req); err != nil {
		renderForm(ctx, "login.html", gin.H{"Mobile": req.Mobile, "Action": req.Action}, middleware.BindError(err))
		return
	}

	result, err := c.authService.StartLogin(ctx.Request.Context(), req.Mobile, req.Action)
	if err != nil {
		renderForm(ctx, "login.html", gin.H{"Mobile": req.Mobile, "Action": req.Action}, err)
		return
	}
	c.continueLogin(ctx, result)
}

// continueLogin moves the browser to the next step of the flow.
func (c *AuthController) continueLogin(ctx *gin.Context, result *services.LoginResult) {
	switch result.Step {
	case services.StepSignedIn:
		if err := middleware.SignIn(ctx, appauth.TutorIdentity(result.Tutor)); err != nil {
			middleware.HandlePageError(ctx, err)
			return
		}
		redirect(ctx, middleware.FlashSuccess, "Welcome back, "+result.Tutor.DisplayName()+"!", "/dashboard")

	case services.StepVerifyOTP:
		if err := middleware.SetSessionValues(ctx, map[string]interface{}{
			sessionOTPChallenge: result.Challenge,
			sessionSignupMobile: nil,
		}); err != nil {
			middleware.HandlePageError(ctx, err)
			return
		}
		redirect(ctx, middleware.FlashInfo, "OTP sent to "+result.Mobile, "/verify")

	case services.StepSignupDetails:
		if err := middleware.SetSessionValues(ctx, map[string]interface{}{
			sessionOTPChallenge: nil,
			sessionSignupMobile: result.Mobile,
		}); err != nil {
			middleware.HandlePageError(ctx, err)
			return
		}
		redirect(ctx, middleware.FlashInfo, "Tell us about your tuition", "/signup/details")
	}
}

// VerifyPage renders the OTP form.
func (c *AuthController) VerifyPage(ctx *gin.Context) {
	if middleware.SessionString(ctx, sessionOTPChallenge) == "" {
		redirect(ctx, middleware.FlashError, "Please start with your mobile number", "/login")
		return
	}
	render(ctx, http.StatusOK, "verify.html", nil)
}

// Verify checks the OTP of the pending challenge.
func (c *AuthController) Verify(ctx *gin.Context) {
	challenge := middleware.SessionString(ctx, sessionOTPChallenge)
	if challenge == "" {
		redirect(ctx, middleware.FlashError, "Please start with your mobile number", "/login")
		return
	}

	var req dto.VerifyOTPRequest
	if err := ctx.ShouldBind(&req); err != nil {
		renderForm(ctx, "verify.html", nil, middleware.BindError(err))
		return
	}

	result, err := c.authService.VerifyOTP(ctx.Request.Context(), challenge, req.Code)
	if err != nil {
		renderForm(ctx, "verify.html", nil, err)
		return
	}
	c.continueLogin(ctx, result)
}

// SignupPage renders the tuition details form of a verified new mobile.
func (c *AuthController) SignupPage(ctx *gin.Context) {
	mobile := middleware.SessionString(ctx, sessionSignupMobile)
	if mobile == "" {
		redirect(ctx, middleware.FlashError, "Please verify your mobile number first", "/login?action=signup")
		return
	}
	render(ctx, http.StatusOK, "signup.html", gin.H{"Mobile": mobile})
}

// Signup creates the tutor account.
func (c *AuthController) Signup(ctx *gin.Context) {
	mobile := middleware.SessionString(ctx, sessionSignupMobile)
	if mobile == "" {
		redirect(ctx, middleware.FlashError, "Please verify your mobile number first", "/login?action=signup")
		return
	}

	var req dto.SignupDetailsRequest
	if err := ctx.ShouldBind(&req); err != nil {
		renderForm(ctx, "signup.html", gin.H{"Mobile": mobile, "Form": req}, middleware.BindError(err))
		return
	}

	tutor, err := c.authService.CompleteSignup(ctx.Request.Context(), mobile, req)
	if err != nil {
		renderForm(ctx, "signup.html", gin.H{"Mobile": mobile, "Form": req}, err)
		return
	}

	if err := middleware.SignIn(ctx, appauth.TutorIdentity(tutor)); err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	redirect(ctx, middleware.FlashSuccess, "Account created successfully!", "/dashboard")
}

// Logout ends the session of either kind of identity.
func (c *AuthController) Logout(ctx *gin.Context) {
	target := "/login"
	if middleware.CurrentIdentity(ctx).IsStudent() {
		target = "/student/login"
	}
	if err := middleware.SignOut(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear session")
	}
	redirect(ctx, middleware.FlashSuccess, "You have been logged out", target)
}

// StudentLoginPage renders the portal login form.
func (c *AuthController) StudentLoginPage(ctx *gin.Context) {
	if id := middleware.CurrentIdentity(ctx); id.IsStudent() {
		ctx.Redirect(http.StatusFound, id.HomePath())
		return
	}
	render(ctx, http.StatusOK, "student_login.html", gin.H{"Phone": ctx.Query("phone")})
}

// StudentLogin signs a student in by phone number.
func (c *AuthController) StudentLogin(ctx *gin.Context) {
	var req dto.StudentLoginRequest
	if err := ctx.ShouldBind(&req); err != nil {
		renderForm(ctx, "student_login.html", gin.H{"Phone": req.Phone}, middleware.BindError(err))
		return
	}

	student, err := c.authService.StudentLogin(ctx.Request.Context(), req.Phone)
	if err != nil {
		renderForm(ctx, "student_login.html", gin.H{"Phone": req.Phone}, err)
		return
	}

	if err := middleware.SignIn(ctx, appauth.StudentIdentity(student)); err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	redirect(ctx, middleware.FlashSuccess, "Welcome, "+student.Name+"!", "/student/dashboard")
}

// ProfilePage renders the tutor profile form.
func (c *AuthController) ProfilePage(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)
	tutor, err := c.tutorService.Get(ctx.Request.Context(), id.TutorID)
	if err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	render(ctx, http.StatusOK, "profile.html", gin.H{"Tutor": tutor})
}

// UpdateProfile saves the tutor profile and refreshes the cached name.
func (c *AuthController) UpdateProfile(ctx *gin.Context) {
	id := middleware.CurrentIdentity(ctx)

	var req dto.ProfileRequest
	if err := ctx.ShouldBind(&req); err != nil {
		renderForm(ctx, "profile.html", gin.H{"Form": req}, middleware.BindError(err))
		return
	}

	tutor, err := c.tutorService.UpdateProfile(ctx.Request.Context(), id.TutorID, req)
	if err != nil {
		renderForm(ctx, "profile.html", gin.H{"Form": req}, err)
		return
	}

	if err := middleware.SignIn(ctx, appauth.TutorIdentity(tutor)); err != nil {
		middleware.HandlePageError(ctx, err)
		return
	}
	redirect(ctx, middleware.FlashSuccess, "Profile updated successfully!", "/profile")
}
