// Package client talks to the member API on behalf of a user interface. It
// runs the same field rules as the server before sending anything.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-member-go/internal/member/entity"
	"github.com/ovaphlow/pitchfork/service-member-go/internal/validation"
)

// Profile is the public account view returned by the server.
type Profile = entity.Profile

// APIError is a failure reported by the server.
type APIError struct {
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Msg)
}

// Client calls the three member endpoints.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

type envelope struct {
	Status string          `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// RegisterRequest is the registration form. Picture is read once.
type RegisterRequest struct {
	Name        string
	Email       string
	Password    string
	Tasks       []string
	PictureName string
	PictureType string
	PictureSize int64
	Picture     io.Reader
}

func (r RegisterRequest) fileMeta() *validation.FileMeta {
	if r.Picture == nil {
		return nil
	}
	return &validation.FileMeta{Name: r.PictureName, Size: r.PictureSize, ContentType: r.PictureType}
}

// Register submits the registration form and returns the server's message.
// Invalid input is reported as validation.FieldErrors without a request.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	err := validation.Registration(validation.RegistrationInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Notes:    req.Tasks,
		Picture:  req.fileMeta(),
	}).Err()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{{"name", req.Name}, {"email", req.Email}, {"password", req.Password}}
	for i, t := range req.Tasks {
		fields = append(fields, [2]string{validation.NoteField(i), t})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return "", err
		}
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="profilePic"; filename=%q`, filepath.Base(req.PictureName)))
	h.Set("Content-Type", req.PictureType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, req.Picture); err != nil {
		return "", fmt.Errorf("read picture: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	env, err := c.post(ctx, "/register", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	return env.Msg, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	if err := validation.Login(email, password).Err(); err != nil {
		return nil, err
	}
	form := url.Values{"email": {email}, "password": {password}}
	env, err := c.post(ctx, "/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	var data struct {
		Profile
		AuthToken string `json:"authToken"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode login: %w", err)
	}
	return &Session{Token: data.AuthToken, Profile: data.Profile}, nil
}

// ValidateToken fetches the profile a session token belongs to.
func (c *Client) ValidateToken(ctx context.Context, tok string) (*Profile, error) {
	form := url.Values{"authToken": {tok}}
	env, err := c.post(ctx, "/validateToken", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// post sends body and turns any failure envelope into an *APIError, even
// when the server answered 200.
func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Msg: http.StatusText(resp.StatusCode)}
	}
	if env.Status != "success" {
		msg := env.Msg
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Msg: msg}
	}
	return &env, nil
}
