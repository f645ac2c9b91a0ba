package server

import (
	"github.com/raysh454/threatcheck/internal/app"
	"github.com/raysh454/threatcheck/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address for the API server. Empty means
	// AppConfig.Server.ListenAddr.
	ListenAddr string

	// MaxUploadBytes caps /verify/file uploads. Zero means
	// AppConfig.Server.MaxUploadBytes.
	MaxUploadBytes int64

	// AllowedOrigins extends the same-origin check on /ws/verify. Nil means
	// AppConfig.Server.AllowedOrigins.
	AllowedOrigins []string

	// AppConfig is used to build an Application when App is nil.
	AppConfig *app.Config

	// App, when set, is served as-is and is not shut down by Close.
	App *app.Application

	Logger logging.Logger
}
