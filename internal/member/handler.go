package member

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-member-go/internal/validation"
)

// Handler exposes HTTP endpoints for registration, login and token checks.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
	// MaxUploadBytes caps a registration request body.
	MaxUploadBytes int64
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger, MaxUploadBytes: 10 << 20}
}

const (
	statusSuccess = "success"
	statusFailure = "failure"

	msgRegistered     = "Registration successful"
	msgEmailExists    = "Email already exists"
	msgNoSuchUser     = "User does not exist"
	msgBadPassword    = "Invalid Password"
	msgInvalidToken   = "Invalid token"
	msgInternal       = "Internal Server Error"
	msgLoginFailed    = "Login failed"
	msgInvalidForm    = "Invalid form data"
	msgTooManyLogins  = "Too many login attempts"
	formMemory        = 1 << 20
	loginBodyMaxBytes = 1 << 20
)

// Response is the JSON envelope every endpoint answers with.
type Response struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := parseForm(r, formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || r.ContentLength > h.MaxUploadBytes {
			h.writeJSON(w, http.StatusBadRequest, Response{Status: statusFailure, Msg: validation.ReasonPictureTooLarge})
			return
		}
		h.logger.Debugw("invalid register payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, Response{Status: statusFailure, Msg: msgInvalidForm})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	in := RegisterInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Tasks:    NormalizeTasks(r.PostForm),
	}
	file, header, err := r.FormFile("profilePic")
	switch {
	case err == nil:
		defer file.Close()
		in.Picture = &validation.FileMeta{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: pictureType(header.Header.Get("Content-Type"), header.Filename),
		}
		in.PictureBody = file
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		h.logger.Debugw("invalid profile picture part", "err", err)
		h.writeJSON(w, http.StatusBadRequest, Response{Status: statusFailure, Msg: msgInvalidForm})
		return
	}

	err = h.svc.Register(r.Context(), in)
	var fe validation.FieldErrors
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusCreated, Response{Status: statusSuccess, Msg: msgRegistered})
	case errors.As(err, &fe):
		h.writeJSON(w, http.StatusBadRequest, Response{Status: statusFailure, Msg: fe.First().Reason, Data: fe})
	case errors.Is(err, ErrDuplicateAccount):
		h.writeJSON(w, http.StatusBadRequest, Response{Status: statusFailure, Msg: msgEmailExists})
	default:
		h.logger.Errorw("register failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, Response{Status: statusFailure, Msg: msgInternal})
	}
}

// Login answers 200 for wrong credentials too; the envelope status tells
// the client whether it worked.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, loginBodyMaxBytes)
	if !h.parseSmallForm(w, r) {
		return
	}
	res, err := h.svc.Login(r.Context(), r.PostFormValue("email"), r.PostFormValue("password"))
	var fe validation.FieldErrors
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, Response{Status: statusSuccess, Data: res})
	case errors.As(err, &fe):
		h.writeJSON(w, http.StatusBadRequest, Response{Status: statusFailure, Msg: fe.First().Reason, Data: fe})
	case errors.Is(err, ErrNoSuchAccount):
		h.writeJSON(w, http.StatusOK, Response{Status: statusFailure, Msg: msgNoSuchUser})
	case errors.Is(err, ErrInvalidPassword):
		h.writeJSON(w, http.StatusOK, Response{Status: statusFailure, Msg: msgBadPassword})
	case errors.Is(err, ErrLoginBlocked):
		h.writeJSON(w, http.StatusTooManyRequests, Response{Status: statusFailure, Msg: msgTooManyLogins})
	default:
		h.logger.Errorw("login failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, Response{Status: statusFailure, Msg: msgLoginFailed})
	}
}

func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, loginBodyMaxBytes)
	if !h.parseSmallForm(w, r) {
		return
	}
	profile, err := h.svc.ValidateToken(r.Context(), r.PostFormValue("authToken"))
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, Response{Status: statusSuccess, Data: profile})
	case errors.Is(err, ErrInvalidToken):
		h.logger.Debugw("token rejected", "err", err)
		h.writeJSON(w, http.StatusUnauthorized, Response{Status: statusFailure, Msg: msgInvalidToken})
	case errors.Is(err, ErrNoSuchAccount):
		h.writeJSON(w, http.StatusOK, Response{Status: statusFailure, Msg: msgNoSuchUser})
	default:
		h.logger.Errorw("validate token failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, Response{Status: statusFailure, Msg: msgInternal})
	}
}

func (h *Handler) parseSmallForm(w http.ResponseWriter, r *http.Request) bool {
	if err := parseForm(r, formMemory); err != nil {
		h.logger.Debugw("invalid form payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, Response{Status: statusFailure, Msg: msgInvalidForm})
		return false
	}
	if r.MultipartForm != nil {
		// login forms carry no files
		_ = r.MultipartForm.RemoveAll()
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
