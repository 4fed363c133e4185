package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/ecostep/config"
	"github.com/tech-arch1tect/ecostep/services/logging"
	"go.uber.org/zap"
)

//go:embed views/*.html
var embedded embed.FS

// Flash is the one-shot notice shown at the top of a page.
type Flash struct {
	Message string
	Type    string
}

// Page is the data every view receives. Data carries page specific values.
type Page struct {
	Title         string
	AppName       string
	CSRF          string
	Authenticated bool
	Flash         *Flash
	Error         string
	Errors        []string
	Message       string
	Form          map[string]string
	FieldErrors   map[string]string
	Data          any
}

type Service struct {
	config config.TemplatesConfig
	files  fs.FS
	logger *logging.Service

	mu        sync.RWMutex
	templates *template.Template
}

// New renders from the embedded views unless cfg.Dir points at a directory.
func New(cfg config.TemplatesConfig, logger *logging.Service) *Service {
	if cfg.Extension == "" {
		cfg.Extension = ".html"
	}

	files, _ := fs.Sub(embedded, "views")
	if cfg.Dir != "" {
		files = os.DirFS(cfg.Dir)
	}

	return &Service{
		config: cfg,
		files:  files,
		logger: logger.Named("templates"),
	}
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"year": func() int { return time.Now().Year() },
		"join": strings.Join,
	}
}

func (s *Service) parse() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcs()).ParseFS(s.files, "*"+s.config.Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

func (s *Service) LoadTemplates() error {
	tmpl, err := s.parse()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.templates = tmpl
	s.mu.Unlock()

	s.logger.Debug("templates loaded", zap.String("dir", s.config.Dir), zap.Bool("development", s.config.Development))
	return nil
}

// Execute renders the named view. The extension may be omitted.
func (s *Service) Execute(w io.Writer, name string, data any) error {
	if !strings.HasSuffix(name, s.config.Extension) {
		name += s.config.Extension
	}

	tmpl, err := s.current()
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, name, data)
}

func (s *Service) current() (*template.Template, error) {
	if s.config.Development {
		return s.parse()
	}

	s.mu.RLock()
	tmpl := s.templates
	s.mu.RUnlock()
	if tmpl != nil {
		return tmpl, nil
	}

	if err := s.LoadTemplates(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.templates, nil
}

func (s *Service) Renderer() *Renderer {
	return &Renderer{service: s}
}

// Renderer adapts Service to echo.Renderer.
type Renderer struct {
	service *Service
}

func (r *Renderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	return r.service.Execute(w, name, data)
}
