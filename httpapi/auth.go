package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	loginGuard "github.com/MrEthical07/loginGuard"
	"github.com/MrEthical07/loginGuard/logging"
	"github.com/MrEthical07/loginGuard/middleware"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type signUpRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type logInRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptchaToken"`
}

type logInResponse struct {
	Message    string `json:"message"`
	IsVerified bool   `json:"isVerified"`
}

type changePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	IsVerified    bool   `json:"isVerified"`
	Is2FA         bool   `json:"is2FA"`
	LastIP        string `json:"lastIp"`
	LastUserAgent string `json:"lastUserAgent"`
}

var errBadBody = errors.New("invalid request body")

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	middleware.WriteStatus(w, r, http.StatusBadRequest, msg)
}

// signUp creates an account on behalf of a signed-in operator. The
// temporary password goes out by mail only.
func (a *api) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		badRequest(w, r, "email is required")
		return
	}

	res, err := a.engine.CreateAccount(r.Context(), loginGuard.CreateAccountRequest{
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("user created", "email", res.Email, "mail_delivered", res.MailDelivered)
	middleware.WriteJSON(w, http.StatusCreated, messageResponse{Message: "ok"})
}

func (a *api) logIn(w http.ResponseWriter, r *http.Request) {
	var req logInRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		badRequest(w, r, "email and password are required")
		return
	}

	res, err := a.engine.Login(r.Context(), loginGuard.LoginRequest{
		Email:        req.Email,
		Password:     req.Password,
		CaptchaToken: req.RecaptchaToken,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if res.VerificationRequired {
		a.cookies.setVerify(w, res.VerifyToken, res.VerifyTokenTTL)
		middleware.WriteJSON(w, http.StatusOK, logInResponse{Message: "User must change password"})
		return
	}

	a.cookies.setSession(w, res.Session)
	middleware.WriteJSON(w, http.StatusOK, logInResponse{Message: "Logged In Successfully", IsVerified: true})
}

func (a *api) checkSession(w http.ResponseWriter, r *http.Request) {
	info, _ := middleware.SessionFromContext(r.Context())
	if info == nil {
		middleware.WriteError(w, r, loginGuard.ErrSessionNotFound)
		return
	}

	u, err := a.engine.CurrentUser(r.Context(), info.SessionID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]userResponse{"user": {
		ID:            u.ID,
		Email:         u.Email,
		Role:          u.Role,
		IsVerified:    u.IsVerified,
		Is2FA:         u.Is2FA,
		LastIP:        u.LastIP,
		LastUserAgent: u.LastUserAgent,
	}})
}

// logOut clears the cookies even when the session could not be deleted.
func (a *api) logOut(w http.ResponseWriter, r *http.Request) {
	err := a.engine.RevokeSession(r.Context(), a.cookies.read(r, a.cookies.cfg.SessionName))
	a.cookies.clearSession(w)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Logged Out Successfully"})
}

func (a *api) changePassword(w http.ResponseWriter, r *http.Request) {
	token := a.cookies.read(r, a.cookies.cfg.VerifyName)
	if token == "" {
		middleware.WriteError(w, r, loginGuard.ErrVerifyTokenMissing)
		return
	}

	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	info, err := a.engine.RedeemVerification(r.Context(), loginGuard.RedeemRequest{
		Token:       token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		if loginGuard.KindOf(err) == loginGuard.KindUnauthorized {
			a.cookies.clearVerify(w)
		}
		middleware.WriteError(w, r, err)
		return
	}

	a.cookies.clearVerify(w)
	a.cookies.setSession(w, info)
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Message: "Password changed successfully"})
}

func (a *api) checkVerifyToken(w http.ResponseWriter, r *http.Request) {
	userID, err := a.engine.PeekVerification(r.Context(), a.cookies.read(r, a.cookies.cfg.VerifyName))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"userId":  userID,
		"message": "Verify token is valid",
	})
}
