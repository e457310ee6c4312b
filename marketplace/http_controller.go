package marketplace

import (
	"net/http"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	auth "github.com/hungerlink/go-auth"
)

const (
	msgCreateFailed = "Failed to save. Please try again."
	msgListFailed   = "Failed to fetch records"
	msgUpdateFailed = "Failed to update record"
)

// Controller serves the donation and request endpoints
type Controller struct {
	Service   *Service
	Auther    *auth.RouteAuthenticator
	Responder *auth.ErrorResponder
}

func NewController(service *Service, auther *auth.RouteAuthenticator, responder *auth.ErrorResponder) *Controller {
	if service == nil {
		panic("Missing Service in marketplace controller...")
	}
	if auther == nil {
		panic("Missing RouteAuthenticator in marketplace controller...")
	}
	if responder == nil {
		responder = auth.NewErrorResponder(false, nil)
	}
	return &Controller{Service: service, Auther: auther, Responder: responder}
}

// RegisterDonationRoutes mounts the donation endpoints on app
func RegisterDonationRoutes[T any](app router.Router[T], ctrl *Controller) {
	protected := ctrl.Auther.ProtectedRoute()

	app.Post("/", ctrl.CreateDonation, protected).SetName("donations.create")
	app.Get("/my", ctrl.MyDonations, protected).SetName("donations.my")
	app.Get("/", ctrl.ListDonations).SetName("donations.list")
	app.Patch("/:id", ctrl.UpdateDonation, protected).SetName("donations.update")
}

// RegisterRequestRoutes mounts the request endpoints on app
func RegisterRequestRoutes[T any](app router.Router[T], ctrl *Controller) {
	protected := ctrl.Auther.ProtectedRoute()

	app.Post("/", ctrl.CreateRequest, protected).SetName("requests.create")
	app.Get("/my", ctrl.MyRequests, protected).SetName("requests.my")
	app.Get("/", ctrl.ListRequests).SetName("requests.list")
	app.Patch("/:id", ctrl.UpdateRequest, protected).SetName("requests.update")
}

func (h *Controller) CreateDonation(ctx router.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return h.Responder.Respond(ctx, err, "")
	}

	msg := CreateDonationMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return h.Responder.Respond(ctx, auth.NewValidationError("form", "Invalid request body", nil), "")
	}

	donation, err := h.Service.CreateDonation(ctx.Context(), actor, msg)
	if err != nil {
		return h.Responder.Respond(ctx, err, msgCreateFailed)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"success":  true,
		"donation": NewDonationView(donation),
	})
}

func (h *Controller) MyDonations(ctx router.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return h.Responder.Respond(ctx, err, "")
	}

	records, err := h.Service.MyDonations(ctx.Context(), actor)
	if err != nil {
		return h.Responder.Respond(ctx, err, msgListFailed)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true, "donations": NewDonationViews(records)})
}

func (h *Controller) ListDonations(ctx router.Context) error {
	records, err := h.Service.ListDonations(ctx.Context(), listOptions(ctx))
	if err != nil {
		return h.Responder.Respond(ctx, err, msgListFailed)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true, "donations": NewDonationViews(records)})
}

func (h *Controller) UpdateDonation(ctx router.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return h.Responder.Respond(ctx, err, "")
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return h.Responder.Respond(ctx, ErrInvalidID, "")
	}

	msg := UpdateDonationMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return h.Responder.Respond(ctx, auth.NewValidationError("form", "Invalid request body", nil), "")
	}

	donation, err := h.Service.UpdateDonation(ctx.Context(), actor, id, msg)
	if err != nil {
		return h.Responder.Respond(ctx, err, msgUpdateFailed)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true, "donation": NewDonationView(donation)})
}

func (h *Controller) CreateRequest(ctx router.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return h.Responder.Respond(ctx, err, "")
	}

	msg := CreateRequestMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return h.Responder.Respond(ctx, auth.NewValidationError("form", "Invalid request body", nil), "")
	}

	request, err := h.Service.CreateRequest(ctx.Context(), actor, msg)
	if err != nil {
		return h.Responder.Respond(ctx, err, msgCreateFailed)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"request": NewRequestView(request),
	})
}

func (h *Controller) MyRequests(ctx router.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return h.Responder.Respond(ctx, err, "")
	}

	records, err := h.Service.MyRequests(ctx.Context(), actor)
	if err != nil {
		return h.Responder.Respond(ctx, err, msgListFailed)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true, "requests": NewRequestViews(records)})
}

func (h *Controller) ListRequests(ctx router.Context) error {
	records, err := h.Service.ListRequests(ctx.Context(), listOptions(ctx))
	if err != nil {
		return h.Responder.Respond(ctx, err, msgListFailed)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true, "requests": NewRequestViews(records)})
}

func (h *Controller) UpdateRequest(ctx router.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return h.Responder.Respond(ctx, err, "")
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return h.Responder.Respond(ctx, ErrInvalidID, "")
	}

	msg := UpdateRequestMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return h.Responder.Respond(ctx, auth.NewValidationError("form", "Invalid request body", nil), "")
	}

	request, err := h.Service.UpdateRequest(ctx.Context(), actor, id, msg)
	if err != nil {
		return h.Responder.Respond(ctx, err, msgUpdateFailed)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true, "request": NewRequestView(request)})
}

func actorFrom(ctx router.Context) (Actor, error) {
	claims, ok := auth.GetClaims(ctx.Context())
	if !ok {
		return Actor{}, auth.ErrTokenInvalid
	}

	id, err := claims.AccountID()
	if err != nil {
		return Actor{}, err
	}

	return Actor{ID: id, Role: claims.Role()}, nil
}

func listOptions(ctx router.Context) ListOptions {
	return ListOptions{
		Status: ctx.Query("status", ""),
		Limit:  ctx.QueryInt("limit", DefaultListLimit),
		Offset: ctx.QueryInt("offset", 0),
	}
}
