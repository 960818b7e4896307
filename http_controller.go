package accounts

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// Locals keys under which the consumer's multipart middleware stages
// uploaded files before the controller runs.
const (
	AvatarFileKey     = "avatar_file"
	CoverImageFileKey = "cover_image_file"
)

type AccountControllerRoutes struct {
	Register       string
	Login          string
	Logout         string
	Refresh        string
	ChangePassword string
	CurrentUser    string
	UpdateAccount  string
	Avatar         string
	CoverImage     string
}

type AccountController struct {
	Debug    bool
	Logger   Logger
	Sessions *SessionManager
	Auther   *RouteAuthenticator
	Routes   *AccountControllerRoutes
	ctxKey   string
}

type AccountControllerOption func(*AccountController) *AccountController

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger: defLogger{},
		ctxKey: "user",
		Routes: &AccountControllerRoutes{
			Register:       "/register",
			Login:          "/login",
			Logout:         "/logout",
			Refresh:        "/refresh-token",
			ChangePassword: "/change-password",
			CurrentUser:    "/current-user",
			UpdateAccount:  "/update-account",
			Avatar:         "/avatar",
			CoverImage:     "/cover-image",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Sessions == nil {
		panic("Missing SessionManager in account controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in account controller...")
	}

	return c
}

func WithControllerSessions(s *SessionManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Sessions = s
		return c
	}
}

func WithControllerAuther(a *RouteAuthenticator) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Auther = a
		return c
	}
}

func WithControllerLogger(l Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Logger = l
		return c
	}
}

func WithControllerContextKey(key string) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.ctxKey = key
		return c
	}
}

// RegisterAccountRoutes mounts every account flow on the given router.
// Routes that require an authenticated identity are wrapped with the
// access token middleware.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountControllerOption) {
	controller := NewAccountController(opts...)
	protected := controller.Auther.ProtectedRoute()

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("accounts.register")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("accounts.login")

	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("accounts.refresh")

	app.Post(controller.Routes.Logout, protected(controller.LogoutPost)).
		SetName("accounts.logout")

	app.Post(controller.Routes.ChangePassword, protected(controller.ChangePasswordPost)).
		SetName("accounts.change-password")

	app.Get(controller.Routes.CurrentUser, protected(controller.CurrentUserGet)).
		SetName("accounts.current-user")

	app.Post(controller.Routes.UpdateAccount, protected(controller.UpdateAccountPost)).
		SetName("accounts.update-account")

	app.Post(controller.Routes.Avatar, protected(controller.UpdateAvatarPost)).
		SetName("accounts.avatar")

	app.Post(controller.Routes.CoverImage, protected(controller.UpdateCoverImagePost)).
		SetName("accounts.cover-image")
}

// RegistrationCreatePayload is the registration body
type RegistrationCreatePayload struct {
	FullName string `form:"fullname" json:"fullname"`
	Email    string `form:"email" json:"email"`
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return JSONResponse(ctx, fiber.StatusBadRequest, nil, "error parsing body")
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload", "error", err)
		return JSONResponse(ctx, fiber.StatusBadRequest, nil, err.Error())
	}

	if a.Debug {
		fmt.Println("======= ACCOUNTS REGISTER =======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=================================")
	}

	input := RegisterInput{
		FullName:       payload.FullName,
		Email:          payload.Email,
		Username:       payload.Username,
		Password:       payload.Password,
		AvatarPath:     localsString(ctx, AvatarFileKey),
		CoverImagePath: localsString(ctx, CoverImageFileKey),
	}

	user, err := a.Sessions.Register(ctx.Context(), input)
	if err != nil {
		a.Logger.Error("register user", "error", err)
		return JSONError(ctx, err)
	}

	return JSONResponse(ctx, fiber.StatusCreated, user, "user signed up successfully")
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Email      string `form:"email" json:"email"`
	Username   string `form:"username" json:"username"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns whichever identifier field the client filled in
func (r LoginRequest) GetIdentifier() string {
	if r.Identifier != "" {
		return r.Identifier
	}
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	if r.GetIdentifier() == "" {
		return validation.Errors{
			"identifier": fmt.Errorf("username or email is required"),
		}
	}

	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AccountController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return JSONResponse(ctx, fiber.StatusBadRequest, nil, "error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return JSONResponse(ctx, fiber.StatusBadRequest, nil, err.Error())
	}

	result, err := a.Sessions.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("login", "error", err)
		return JSONError(ctx, err)
	}

	a.Auther.SetTokenCookies(ctx, result.Tokens)

	return JSONResponse(ctx, fiber.StatusOK, result, "user logged in successfully")
}

func (a *AccountController) LogoutPost(ctx router.Context) error {
	userID, err := CurrentUserID(ctx, a.ctxKey)
	if err != nil {
		return JSONError(ctx, err)
	}

	if err := a.Sessions.Logout(ctx.Context(), userID); err != nil {
		a.Logger.Error("logout", "error", err)
		return JSONError(ctx, err)
	}

	a.Auther.ClearTokenCookies(ctx)

	return JSONResponse(ctx, fiber.StatusOK, nil, "user logged out")
}

// RefreshPayload carries the body channel refresh token. The cookie
// channel takes precedence when both are present.
type RefreshPayload struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

func (a *AccountController) RefreshPost(ctx router.Context) error {
	payload := new(RefreshPayload)
	// cookie-only clients send no body at all
	_ = ctx.Bind(payload)

	incoming := a.Auther.RefreshTokenFromRequest(ctx, payload.RefreshToken)

	pair, err := a.Sessions.Refresh(ctx.Context(), incoming)
	if err != nil {
		a.Logger.Error("refresh rotation", "error", err)
		return JSONError(ctx, err)
	}

	a.Auther.SetTokenCookies(ctx, *pair)

	return JSONResponse(ctx, fiber.StatusOK, pair, "access token refreshed successfully")
}

// ChangePasswordPayload carries the old and new credentials
type ChangePasswordPayload struct {
	OldPassword string `form:"old_password" json:"old_password"`
	NewPassword string `form:"new_password" json:"new_password"`
}

// Validate will validate the payload
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) ChangePasswordPost(ctx router.Context) error {
	userID, err := CurrentUserID(ctx, a.ctxKey)
	if err != nil {
		return JSONError(ctx, err)
	}

	payload := new(ChangePasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("change password parse payload", "error", err)
		return JSONResponse(ctx, fiber.StatusBadRequest, nil, "error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return JSONResponse(ctx, fiber.StatusBadRequest, nil, err.Error())
	}

	if err := a.Sessions.ChangePassword(ctx.Context(), userID, payload.OldPassword, payload.NewPassword); err != nil {
		a.Logger.Error("change password", "error", err)
		return JSONError(ctx, err)
	}

	return JSONResponse(ctx, fiber.StatusOK, nil, "password changed successfully")
}

func (a *AccountController) CurrentUserGet(ctx router.Context) error {
	userID, err := CurrentUserID(ctx, a.ctxKey)
	if err != nil {
		return JSONError(ctx, err)
	}

	user, err := a.Sessions.CurrentUser(ctx.Context(), userID)
	if err != nil {
		return JSONError(ctx, err)
	}

	return JSONResponse(ctx, fiber.StatusOK, user, "current user fetched successfully")
}

// UpdateAccountPayload carries the mutable text profile fields
type UpdateAccountPayload struct {
	FullName string `form:"fullname" json:"fullname"`
	Email    string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r UpdateAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AccountController) UpdateAccountPost(ctx router.Context) error {
	userID, err := CurrentUserID(ctx, a.ctxKey)
	if err != nil {
		return JSONError(ctx, err)
	}

	payload := new(UpdateAccountPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("update account parse payload", "error", err)
		return JSONResponse(ctx, fiber.StatusBadRequest, nil, "error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return JSONResponse(ctx, fiber.StatusBadRequest, nil, err.Error())
	}

	user, err := a.Sessions.UpdateAccountDetails(ctx.Context(), userID, payload.FullName, payload.Email)
	if err != nil {
		a.Logger.Error("update account", "error", err)
		return JSONError(ctx, err)
	}

	return JSONResponse(ctx, fiber.StatusOK, user, "account details updated successfully")
}

func (a *AccountController) UpdateAvatarPost(ctx router.Context) error {
	return a.updateMedia(ctx, AvatarFileKey, a.Sessions.UpdateAvatar, "avatar updated successfully")
}

func (a *AccountController) UpdateCoverImagePost(ctx router.Context) error {
	return a.updateMedia(ctx, CoverImageFileKey, a.Sessions.UpdateCoverImage, "cover image updated successfully")
}

func (a *AccountController) updateMedia(
	ctx router.Context,
	fileKey string,
	update func(c context.Context, id uuid.UUID, path string) (*User, error),
	message string,
) error {
	userID, err := CurrentUserID(ctx, a.ctxKey)
	if err != nil {
		return JSONError(ctx, err)
	}

	user, err := update(ctx.Context(), userID, localsString(ctx, fileKey))
	if err != nil {
		a.Logger.Error("update media", "key", fileKey, "error", err)
		return JSONError(ctx, err)
	}

	return JSONResponse(ctx, fiber.StatusOK, user, message)
}

func localsString(ctx router.Context, key string) string {
	raw := ctx.Locals(key)
	if raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return ""
}
