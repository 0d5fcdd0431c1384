package api

import (
	"github.com/auto-dns/container-status-sync/internal/domain"
	"github.com/auto-dns/container-status-sync/internal/proxy"
	"github.com/auto-dns/container-status-sync/internal/util"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type handler struct {
	logger     zerolog.Logger
	store      statusReader
	inventory  inventory
	proxies    proxyController
	reconciler resourceReconciler
	events     eventLog
}

func (h *handler) listStatuses(c *fiber.Ctx) error {
	records, err := h.store.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(util.Map(records, toStatusResponse))
}

func (h *handler) resourceStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := h.inventory.Resource(id); !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown resource "+id)
	}
	records, err := h.store.ListResource(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(util.Map(records, toStatusResponse))
}

func (h *handler) reconcileResource(c *fiber.Ctx) error {
	id := c.Params("id")
	resource, ok := h.inventory.Resource(id)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown resource "+id)
	}
	if err := h.reconciler.ReconcileResource(c.Context(), resource); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *handler) proxyStatus(c *fiber.Ctx) error {
	server, err := h.server(c)
	if err != nil {
		return err
	}
	rec, ok, err := h.store.GetProxy(c.Context(), server.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no proxy status recorded for "+server.ID)
	}
	return c.JSON(proxyResponse{
		ServerID:  rec.ServerID,
		Status:    string(rec.Status),
		ForceStop: rec.ForceStop,
		UpdatedAt: rec.UpdatedAt,
	})
}

func (h *handler) startProxy(c *fiber.Ctx) error {
	server, err := h.server(c)
	if err != nil {
		return err
	}
	if err := h.proxies.Start(c.Context(), server); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *handler) stopProxy(c *fiber.Ctx) error {
	server, err := h.server(c)
	if err != nil {
		return err
	}
	var req stopRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := h.proxies.Stop(c.Context(), server, proxy.StopOptions{Force: req.Force, Timeout: req.Timeout}); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *handler) restartProxy(c *fiber.Ctx) error {
	server, err := h.server(c)
	if err != nil {
		return err
	}
	if err := h.proxies.Restart(c.Context(), server); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *handler) recentEvents(c *fiber.Ctx) error {
	resp := eventsResponse{
		StatusChanges: []changeResponse{},
		ProxyEvents:   []proxyEventResponse{},
	}
	for _, ch := range h.events.StatusChanges() {
		cr := changeResponse{
			ID:         ch.ID,
			ResourceID: ch.ResourceID,
			ServerID:   ch.ServerID,
			Primary:    ch.Primary,
			Current:    ch.Current.String(),
			At:         ch.At,
		}
		if !ch.Previous.IsZero() {
			cr.Previous = ch.Previous.String()
		}
		resp.StatusChanges = append(resp.StatusChanges, cr)
	}
	for _, ev := range h.events.ProxyEvents() {
		resp.ProxyEvents = append(resp.ProxyEvents, proxyEventResponse{
			ID:       ev.ID,
			ServerID: ev.ServerID,
			Status:   string(ev.Status),
			Error:    ev.Error,
			At:       ev.At,
		})
	}
	return c.JSON(resp)
}

func (h *handler) server(c *fiber.Ctx) (domain.Server, error) {
	id := c.Params("id")
	server, ok := h.inventory.Server(id)
	if !ok {
		return domain.Server{}, fiber.NewError(fiber.StatusNotFound, "unknown server "+id)
	}
	return server, nil
}
