package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pokeapp/internal/catalog"
	"pokeapp/internal/export"
	"pokeapp/internal/mail"
	"pokeapp/internal/pokeapi"
	"pokeapp/internal/views"
	"pokeapp/pkg/logging"
)

const (
	emailStatusParam = "emailStatus"
	emailSent        = "sent"
	emailFailed      = "failed"
)

// Catalog is the listing surface the handlers render.
type Catalog interface {
	ListPage(ctx context.Context, q catalog.Query) (*catalog.Page, error)
	ExportAll(ctx context.Context, f catalog.Filter) ([]catalog.ExportRow, error)
	DetailView(ctx context.Context, name string) (*catalog.DetailView, error)
}

// PokemonHandler holds dependencies for the /pokemon routes.
type PokemonHandler struct {
	Catalog Catalog
	Mailer  mail.Sender
}

func NewPokemonHandler(c Catalog, m mail.Sender) *PokemonHandler {
	return &PokemonHandler{
		Catalog: c,
		Mailer:  m,
	}
}

// Index handles GET /pokemon.
func (h *PokemonHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	query := catalog.Query{
		Filter:     filterFrom(q),
		PageNumber: intParam(q, "pageNumber", catalog.DefaultPageNumber),
		PageSize:   intParam(q, "pageSize", catalog.DefaultPageSize),
	}

	page, err := h.Catalog.ListPage(ctx, query)
	if err != nil {
		status := upstreamStatus(err)
		logging.L(ctx).Error("list page failed",
			zap.Int("status", status),
			zap.Error(err),
		)
		render(w, r, status, views.Layout("Error", views.ErrorPage(errorMessage(err))))
		return
	}

	render(w, r, http.StatusOK, views.Layout("Pokémon", views.IndexPage(page, noticeFrom(q))))
}

// Details handles GET /pokemon/{name}. HTMX requests get the bare fragment.
func (h *PokemonHandler) Details(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	view, err := h.Catalog.DetailView(ctx, name)
	if err != nil {
		if errors.Is(err, pokeapi.ErrNotFound) {
			logging.L(ctx).Info("pokemon not found", zap.String("name", name))
			http.Error(w, "No Pokémon found with name: "+name, http.StatusNotFound)
			return
		}
		logging.L(ctx).Warn("detail view failed", zap.String("name", name), zap.Error(err))
		http.Error(w, "Failed to load Pokémon details", http.StatusBadRequest)
		return
	}

	fragment := views.DetailPartial(view)
	if isHTMXRequest(r) {
		render(w, r, http.StatusOK, fragment)
		return
	}
	render(w, r, http.StatusOK, views.Layout(view.Pokemon.Name, fragment))
}

// Export handles POST /pokemon/export and streams the filtered workbook.
func (h *PokemonHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid form", zap.Error(err))
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	data, err := h.workbook(ctx, filterFrom(r.PostForm))
	if err != nil {
		status := upstreamStatus(err)
		logger.Error("export failed", zap.Int("status", status), zap.Error(err))
		render(w, r, status, views.Layout("Error", views.ErrorPage(errorMessage(err))))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// SendEmail handles POST /pokemon/email. Unless sendIndividual is set the
// filtered export is attached. Always redirects back to the filtered list.
func (h *PokemonHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid form", zap.Error(err))
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := r.PostForm
	filter := filterFrom(form)
	sendIndividual := checked(form.Get("sendIndividual"))

	msg := mail.Message{
		To:       strings.TrimSpace(form.Get("emailAddress")),
		Subject:  form.Get("subject"),
		HTMLBody: form.Get("body"),
	}

	status := emailSent
	if err := h.sendEmail(ctx, msg, filter, sendIndividual); err != nil {
		status = emailFailed
		logger.Error("send email failed",
			zap.Bool("send_individual", sendIndividual),
			zap.Error(err),
		)
	} else {
		logger.Info("email sent",
			zap.Bool("send_individual", sendIndividual),
			zap.Duration("duration", time.Since(start)),
		)
	}

	http.Redirect(w, r, indexURL(filter, status), http.StatusSeeOther)
}

func (h *PokemonHandler) sendEmail(ctx context.Context, msg mail.Message, f catalog.Filter, sendIndividual bool) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if !sendIndividual {
		data, err := h.workbook(ctx, f)
		if err != nil {
			return err
		}
		msg.Attachments = append(msg.Attachments, mail.Attachment{
			Name:        export.FileName,
			ContentType: export.ContentType,
			Data:        data,
		})
	}
	return h.Mailer.Send(ctx, msg)
}

func (h *PokemonHandler) workbook(ctx context.Context, f catalog.Filter) ([]byte, error) {
	rows, err := h.Catalog.ExportAll(ctx, f)
	if err != nil {
		return nil, err
	}
	return export.Workbook(rows)
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

func isHTMXRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

// filterFrom reads nameFilter and categoryFilter (or the older speciesFilter).
func filterFrom(v url.Values) catalog.Filter {
	category := v.Get("categoryFilter")
	if category == "" {
		category = v.Get("speciesFilter")
	}
	return catalog.Filter{
		Name:     strings.TrimSpace(v.Get("nameFilter")),
		Category: strings.TrimSpace(category),
	}
}

// checked reports whether a checkbox value is set.
func checked(v string) bool {
	if strings.EqualFold(v, "on") {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func intParam(v url.Values, key string, def int) int {
	n, err := strconv.Atoi(v.Get(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func noticeFrom(v url.Values) *views.Notice {
	switch v.Get(emailStatusParam) {
	case emailSent:
		return &views.Notice{Message: "Email sent successfully!"}
	case emailFailed:
		return &views.Notice{Message: "The email could not be sent.", IsError: true}
	default:
		return nil
	}
}

func indexURL(f catalog.Filter, emailStatus string) string {
	q := url.Values{}
	if f.Name != "" {
		q.Set("nameFilter", f.Name)
	}
	if f.Category != "" {
		q.Set("categoryFilter", f.Category)
	}
	if emailStatus != "" {
		q.Set(emailStatusParam, emailStatus)
	}
	if len(q) == 0 {
		return "/pokemon"
	}
	return "/pokemon?" + q.Encode()
}

// upstreamStatus maps PokeAPI failures to 502 and anything else to 500.
func upstreamStatus(err error) int {
	var upErr *pokeapi.UpstreamError
	var decErr *pokeapi.DecodeError
	switch {
	case errors.As(err, &upErr), errors.As(err, &decErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	var upErr *pokeapi.UpstreamError
	var decErr *pokeapi.DecodeError
	switch {
	case errors.As(err, &upErr), errors.As(err, &decErr):
		return "Could not load data from the Pokémon API. Please try again later."
	case errors.Is(err, context.DeadlineExceeded):
		return "The Pokémon API took too long to respond."
	default:
		return "An unexpected error occurred."
	}
}
