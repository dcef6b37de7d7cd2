package http

import (
	"context"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/domain"
)

// Authenticator resolves bearer tokens and issues new ones.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (domain.User, error)
}

// API holds the REST handlers.
type API struct {
	content     *app.ContentService
	submissions *app.SubmissionService
	auth        Authenticator
	logger      *slog.Logger
	validate    *validator.Validate
}

func NewAPI(content *app.ContentService, submissions *app.SubmissionService, authenticator Authenticator, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		content:     content,
		submissions: submissions,
		auth:        authenticator,
		logger:      logger,
		validate:    newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
