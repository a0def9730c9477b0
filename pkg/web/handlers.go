package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/framelab/go-reframe/pkg/scan"
	"github.com/framelab/go-reframe/pkg/service"
	"github.com/framelab/go-reframe/pkg/store"
)

// handleStatus returns what the service is doing right now.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.svc.Status())
}

// handleStartScan kicks off a scan and returns its id immediately.
// Progress arrives on /ws/progress.
func (s *Server) handleStartScan(c *fiber.Ctx) error {
	var req service.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Video == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "video is required",
		})
	}

	id, err := s.svc.Start(c.Context(), req)
	if err != nil {
		if errors.Is(err, scan.ErrScanInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"scan_id": id,
	})
}

// handleCancelScan requests cancellation of the running scan. A no-op
// when nothing is running.
func (s *Server) handleCancelScan(c *fiber.Ctx) error {
	s.svc.Cancel()
	return c.JSON(fiber.Map{"cancelled": true})
}

// handleListScans returns stored scan summaries, newest first.
func (s *Server) handleListScans(c *fiber.Ctx) error {
	summaries, err := s.store.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(summaries)
}

// handleGetScan returns one stored scan with its subjects and the focus
// regions derived from them.
func (s *Server) handleGetScan(c *fiber.Ctx) error {
	rec, err := s.store.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "scan not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"scan":          rec,
		"focus_regions": rec.FocusRegions(),
	})
}
